package adblock

import (
	"contentblocker/config"

	"github.com/AdguardTeam/golibs/errors"
)

// ErrUnknownCategory is returned for category names that aren't known.
const ErrUnknownCategory errors.Error = "unknown blocking category"

// Category 拦截分类，每个分类对应一个拦截列表和一个配置开关
type Category string

const (
	CategoryAdvertising Category = "advertising"
	CategoryAnalytics   Category = "analytics"
	CategorySocial      Category = "social"
	CategoryContent     Category = "content"
	CategoryFonts       Category = "fonts"
)

type categoryInfo struct {
	toggle string
	list   string
	flag   func(b *config.BlockingConfig) *bool
}

// categoryOrder 基础列表在前，其后为严格模式的 content 列表和字体列表
var categoryOrder = []Category{
	CategoryAdvertising,
	CategoryAnalytics,
	CategorySocial,
	CategoryContent,
	CategoryFonts,
}

var categories = map[Category]categoryInfo{
	CategoryAdvertising: {
		toggle: "block_ads",
		list:   "disconnect-advertising",
		flag:   func(b *config.BlockingConfig) *bool { return &b.BlockAds },
	},
	CategoryAnalytics: {
		toggle: "block_analytics",
		list:   "disconnect-analytics",
		flag:   func(b *config.BlockingConfig) *bool { return &b.BlockAnalytics },
	},
	CategorySocial: {
		toggle: "block_social",
		list:   "disconnect-social",
		flag:   func(b *config.BlockingConfig) *bool { return &b.BlockSocial },
	},
	CategoryContent: {
		toggle: "block_other",
		list:   "disconnect-content",
		flag:   func(b *config.BlockingConfig) *bool { return &b.BlockOther },
	},
	CategoryFonts: {
		toggle: "block_fonts",
		list:   "web-fonts",
		flag:   func(b *config.BlockingConfig) *bool { return &b.BlockFonts },
	},
}

// Categories returns all categories in list order.
func Categories() []Category {
	return append([]Category(nil), categoryOrder...)
}

// ListName returns the name of the block list backing c.
func (c Category) ListName() string {
	return categories[c].list
}

// Toggle returns the configuration key that enables c.
func (c Category) Toggle() string {
	return categories[c].toggle
}

// Enabled reports whether c is switched on in b.
func (c Category) Enabled(b config.BlockingConfig) bool {
	info, ok := categories[c]
	if !ok {
		return false
	}

	return *info.flag(&b)
}

// ParseCategory accepts a category name, its configuration key or its list
// name.
func ParseCategory(s string) (c Category, err error) {
	for _, c = range categoryOrder {
		info := categories[c]
		if s == string(c) || s == info.toggle || s == info.list {
			return c, nil
		}
	}

	return "", errors.Annotate(ErrUnknownCategory, "%q: %w", s)
}

// CategoryForList returns the category of the named list.
func CategoryForList(name string) (c Category, ok bool) {
	for _, c = range categoryOrder {
		if categories[c].list == name {
			return c, true
		}
	}

	return "", false
}

// EnabledLists returns the names of the lists switched on in b, in category
// order.
func EnabledLists(b config.BlockingConfig) (names []string) {
	for _, c := range categoryOrder {
		if c.Enabled(b) {
			names = append(names, c.ListName())
		}
	}

	return names
}

// SetEnabled switches c on or off in b.
func SetEnabled(b *config.BlockingConfig, c Category, enabled bool) error {
	info, ok := categories[c]
	if !ok {
		return errors.Annotate(ErrUnknownCategory, "%q: %w", c)
	}

	*info.flag(b) = enabled

	return nil
}
