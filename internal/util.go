package util

import (
	"net"
	"net/url"
	"slices"
	"strings"
)

// IsIP 检查是否为 IP 地址（IPv4 或 IPv6）
func IsIP(host string) bool {
	return net.ParseIP(strings.Trim(host, "[]")) != nil
}

// NormalizeHost 规范化主机名：小写并去掉末尾的点
func NormalizeHost(host string) string {
	return strings.TrimRight(strings.ToLower(host), ".")
}

// HostOf 返回 URL 的规范化主机名，解析失败时返回空字符串
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	return NormalizeHost(u.Hostname())
}

// ReverseDomain 将域名按标签反转，"ads.example.com" 变为 "com.example.ads"。
// IP 地址原样返回
func ReverseDomain(host string) string {
	if IsIP(host) {
		return host
	}

	labels := strings.Split(host, ".")
	slices.Reverse(labels)

	return strings.Join(labels, ".")
}

// IsValidDomain 验证域名格式
func IsValidDomain(domain string) bool {
	domain = strings.TrimRight(domain, ".")
	if len(domain) == 0 || len(domain) > 255 {
		return false
	}

	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}

	for _, label := range labels {
		if len(label) == 0 || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}

		for _, ch := range label {
			if !((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') ||
				(ch >= '0' && ch <= '9') || ch == '-') {
				return false
			}
		}
	}

	return true
}
