package config

import (
	"crypto/subtle"
	"net/netip"
	"strings"
)

// Enabled APIキーが一つ以上設定されているかを返す
func (c *AdminAPIConfig) Enabled() bool {
	return len(c.APIKeys) > 0
}

// ValidKey 一定時間比較でAPIキーを検証
func (c *AdminAPIConfig) ValidKey(apiKey string) bool {
	ok := 0
	for _, key := range c.APIKeys {
		ok |= subtle.ConstantTimeCompare([]byte(apiKey), []byte(key))
	}
	return ok == 1
}

// AllowedPrefixes 単一IPとCIDR表記の許可リストを解析。解析できない項目は無視する
func (c *AdminAPIConfig) AllowedPrefixes() []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, len(c.AllowedIPs))
	for _, entry := range c.AllowedIPs {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			if prefix, err := netip.ParsePrefix(entry); err == nil {
				prefixes = append(prefixes, prefix.Masked())
			}
			continue
		}
		if addr, err := netip.ParseAddr(entry); err == nil {
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
		}
	}
	return prefixes
}

// IPAllowed IPアドレスが許可リストに含まれているかチェック
func IPAllowed(ip string, allowed []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range allowed {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
