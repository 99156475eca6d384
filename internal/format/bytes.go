package format

import "fmt"

// Bytes renders a byte count in binary units with one decimal place,
// like "512 B", "4.0 KiB", "1.5 GiB".
func Bytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// Percent renders a percentage with one decimal place, like "82.5%".
func Percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}
