package logging

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

const semicolonTimestampFormat = "2006-01-02 15:04:05,000"

// SemicolonFormatter writes `timestamp;LEVEL;message` lines, with any entry
// fields appended to the message as key=value pairs
type SemicolonFormatter struct{}

func (f *SemicolonFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer

	b.WriteString(entry.Time.Format(semicolonTimestampFormat))
	b.WriteByte(';')
	b.WriteString(strings.ToUpper(entry.Level.String()))
	b.WriteByte(';')
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}
