package trigger

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jademcosta/logpig/pkg/domain"
)

const DatePlaceholder = "{date}"

// FileNamePattern renders and parses names like /var/log/app-{date}.log.gz.
type FileNamePattern struct {
	pattern       string
	withoutSuffix string
	layout        string
}

func NewFileNamePattern(pattern string, layout string) FileNamePattern {
	ext := domain.CompressionModeFromFileName(pattern).Extension()

	return FileNamePattern{
		pattern:       pattern,
		withoutSuffix: pattern[:len(pattern)-len(ext)],
		layout:        layout,
	}
}

func (p FileNamePattern) Render(at time.Time) string {
	return strings.Replace(p.pattern, DatePlaceholder, at.Format(p.layout), 1)
}

func (p FileNamePattern) RenderWithoutSuffix(at time.Time) string {
	return strings.Replace(p.withoutSuffix, DatePlaceholder, at.Format(p.layout), 1)
}

// Glob matches every archive the pattern could have produced.
func (p FileNamePattern) Glob() string {
	return strings.Replace(p.pattern, DatePlaceholder, "*", 1)
}

// ParseDate extracts the date of an archive name. The location of the result is loc.
func (p FileNamePattern) ParseDate(path string, loc *time.Location) (time.Time, bool) {
	prefix, suffix, _ := strings.Cut(filepath.Base(p.pattern), DatePlaceholder)
	base := filepath.Base(path)

	if len(base) < len(prefix)+len(suffix) || !strings.HasPrefix(base, prefix) || !strings.HasSuffix(base, suffix) {
		return time.Time{}, false
	}

	datePart := base[len(prefix) : len(base)-len(suffix)]
	parsed, err := time.ParseInLocation(p.layout, datePart, loc)
	if err == nil {
		return parsed, true
	}

	withoutCounter, hadCounter := stripCounter(datePart)
	if !hadCounter {
		return time.Time{}, false
	}
	parsed, err = time.ParseInLocation(p.layout, withoutCounter, loc)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// WithCounter derives the n-th alternative of name, used when name is already taken. The
// counter goes after the stem ("app-2024-03-07.log" becomes "app-2024-03-07.1.log"), or at the
// end when the last extension is numeric or missing, so the result still matches Glob and
// ParseDate.
func WithCounter(name string, n int) string {
	counter := "." + strconv.Itoa(n)

	dir, base := filepath.Split(name)
	ext := filepath.Ext(base)
	if ext == "" || isDigits(ext[1:]) {
		return name + counter
	}
	return dir + strings.TrimSuffix(base, ext) + counter + ext
}

func stripCounter(datePart string) (string, bool) {
	idx := strings.LastIndex(datePart, ".")
	if idx <= 0 || !isDigits(datePart[idx+1:]) {
		return datePart, false
	}
	return datePart[:idx], true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// PeriodStart aligns t to the start of its period. Intervals that divide a day are aligned on
// local midnight, others on the zero time.
func PeriodStart(t time.Time, interval time.Duration) time.Time {
	day := 24 * time.Hour
	if interval <= day && day%interval == 0 {
		year, month, dayOfMonth := t.Date()
		midnight := time.Date(year, month, dayOfMonth, 0, 0, 0, 0, t.Location())
		sinceMidnight := t.Sub(midnight)
		return midnight.Add(sinceMidnight - sinceMidnight%interval)
	}
	return t.Truncate(interval)
}
