package http

import (
	"time"

	xutil "CryptoSign/pkg/util"
)

// ParseDate parses YYYY-MM-DD or a "today±N" expression in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	return xutil.ParseDate(s, loc, time.Now())
}
