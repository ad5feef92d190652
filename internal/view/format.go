package view

import (
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// FormatINR renders an amount in rupees with Indian digit grouping:
// 180000 becomes ₹1,80,000 and 4500.5 becomes ₹4,500.50.
func FormatINR(amount float64) string {
	neg := amount < 0
	paise := int64(math.Round(math.Abs(amount) * 100))
	whole := strconv.FormatInt(paise/100, 10)
	frac := paise % 100

	var b strings.Builder
	if neg && paise != 0 {
		b.WriteByte('-')
	}
	b.WriteString("₹")
	b.WriteString(groupIndian(whole))
	if frac != 0 {
		b.WriteByte('.')
		if frac < 10 {
			b.WriteByte('0')
		}
		b.WriteString(strconv.FormatInt(frac, 10))
	}
	return b.String()
}

// groupIndian groups the last three digits, then every two.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]

	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(append(parts, tail), ",")
}

// FormatSize renders a document size; unknown sizes render empty.
func FormatSize(size int64) string {
	if size <= 0 {
		return ""
	}
	return humanize.Bytes(uint64(size))
}
