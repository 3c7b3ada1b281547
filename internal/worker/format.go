package worker

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hwade/propreel/internal/models"
)

// escapeOrder matters: backslash must be escaped before the characters that
// are themselves escaped with a backslash.
var escapeOrder = []string{`\`, `:`, `'`, `$`, `,`}

// EscapeOverlayText makes arbitrary text safe for use inside a drawtext
// filter expression.
func EscapeOverlayText(s string) string {
	for _, ch := range escapeOrder {
		s = strings.ReplaceAll(s, ch, `\`+ch)
	}
	return s
}

// FormatPrice normalizes a free-form price string into comma-grouped digits:
// "$375000" becomes "375,000". Anything that is not a digit or a decimal
// point is stripped first; the value is rounded to whole units. Empty or
// non-numeric input yields "".
func FormatPrice(raw string) string {
	var cleaned strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			cleaned.WriteRune(r)
		}
	}
	if cleaned.Len() == 0 {
		return ""
	}

	value, err := strconv.ParseFloat(cleaned.String(), 64)
	if err != nil {
		return ""
	}

	return groupThousands(int64(math.Round(value)))
}

func groupThousands(n int64) string {
	if n < 1000 {
		return strconv.FormatInt(n, 10)
	}
	var groups []string
	for n >= 1000 {
		groups = append([]string{fmt.Sprintf("%03d", n%1000)}, groups...)
		n /= 1000
	}
	return strconv.FormatInt(n, 10) + "," + strings.Join(groups, ",")
}

// StreetAddress picks the line shown first on the title slide: the explicit
// street address when present, otherwise the portion of the full address
// before the first comma, otherwise a generic placeholder.
func StreetAddress(job *models.VideoJob) string {
	if job.StreetAddress != "" {
		return job.StreetAddress
	}
	if job.Address != "" {
		if i := strings.Index(job.Address, ","); i >= 0 {
			return strings.TrimSpace(job.Address[:i])
		}
		return job.Address
	}
	return "Beautiful Property"
}

// CityStateZip assembles the second title line from the structured fields,
// falling back to whatever follows the first comma of the full address.
func CityStateZip(job *models.VideoJob) string {
	var parts []string
	if job.City != "" {
		parts = append(parts, job.City)
	}
	region := strings.TrimSpace(job.State + " " + job.ZipCode)
	if region != "" {
		parts = append(parts, region)
	}
	if len(parts) > 0 {
		return strings.Join(parts, ", ")
	}
	if i := strings.Index(job.Address, ","); i >= 0 {
		return strings.TrimSpace(job.Address[i+1:])
	}
	return ""
}
