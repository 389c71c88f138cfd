package config

// DefaultConfigContent 默认配置文件内容，包含详细说明
const DefaultConfigContent = `# 本地内容拦截配置文件

# 拦截分类开关
blocking:
  # 广告追踪器 (disconnect-advertising)，默认 true
  block_ads: true
  # 分析追踪器 (disconnect-analytics)，默认 true
  block_analytics: true
  # 社交追踪器 (disconnect-social)，默认 true
  block_social: true
  # 其它内容追踪器 (disconnect-content)，可能导致部分网页异常，默认 false
  block_other: false
  # 网页字体 (web-fonts)，默认 false
  block_fonts: false

# 拦截列表文件
lists:
  # 列表目录，每个列表为 <名称>.json 的内容拦截规则数组
  # 目录中缺少的列表使用程序内置的示例列表，首次运行无需准备列表文件
  dir: "./lists"
  # 单个列表文件的最大体积
  max_size: "10MB"
  # 单条规则匹配的超时时间（毫秒），超时视为不匹配
  match_timeout_ms: 100
  # 远程列表地址（可选），列表名 -> URL，下载后保存为 <名称>.json
  # sources:
  #   disconnect-advertising: "https://example.com/lists/disconnect-advertising.json"
  # 自动更新间隔（小时），0 表示不自动更新
  update_interval_hours: 0

# 匹配引擎
engine:
  # 判定结果缓存条数，规则重新加载时清空
  verdict_cache_size: 4096
  # 按页面统计拦截数的页面条数
  page_stats_size: 256

# 拦截代理（HTTP 正向代理）
proxy:
  # 是否启用代理，默认 true
  enabled: true
  # 代理监听端口
  listen_port: 8118
  # 携带主文档 URL 的请求头，缺失时使用 Referer
  main_document_header: "X-Main-Document-Url"

# Web 管理接口
webui:
  # 是否启用，默认 true
  enabled: true
  # 监听端口
  listen_port: 8080

# 系统配置
system:
  # 日志级别：debug, info, warn, error
  log_level: "info"
  # 日志格式：console, json
  log_format: "console"
`
