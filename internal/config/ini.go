package config

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/stcorp/muninn/internal/apperrors"
)

// iniFile is the parsed form of an archive configuration file: an ordered
// list of sections, each holding its key/value pairs in the order they were
// written. No third-party INI library appears anywhere in the retrieved
// corpus (github.com/BurntSushi/toml parses TOML, not the repeated
// "[extension:<module>]"/"[synchronizer:<name>]" section-per-instance shape
// spec.md §6 requires), so this reader is hand-rolled against
// bufio.Scanner/strings.
type iniFile struct {
	order    []string
	sections map[string]*iniSection
}

type iniSection struct {
	keys   []string
	values map[string]string
}

func newIniFile() *iniFile {
	return &iniFile{sections: map[string]*iniSection{}}
}

func (f *iniFile) section(name string) *iniSection {
	s, ok := f.sections[name]
	if !ok {
		s = &iniSection{values: map[string]string{}}
		f.sections[name] = s
		f.order = append(f.order, name)
	}
	return s
}

// names returns every section header present, in file order, including
// repeated-prefix sections like "extension:fits" and "synchronizer:nightly".
func (f *iniFile) names() []string { return f.order }

func (f *iniFile) get(section, key string) (string, bool) {
	s, ok := f.sections[section]
	if !ok {
		return "", false
	}
	v, ok := s.values[key]
	return v, ok
}

func (s *iniSection) set(key, value string) {
	if _, exists := s.values[key]; !exists {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// parseINI reads sections of the form "[name]" followed by "key = value"
// lines. "#" and ";" start a comment to end of line; blank lines and
// leading/trailing whitespace around keys and values are ignored. Values
// are not quote-aware: a file wanting literal leading/trailing whitespace
// must not need it, matching the fixed, machine-generated nature of the
// archive config format.
func parseINI(r io.Reader) (*iniFile, apperrors.Error) {
	f := newIniFile()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	current := ""
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := stripComment(scanner.Text())
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[") {
			if !strings.HasSuffix(line, "]") {
				return nil, apperrors.ErrConfig.Msg("malformed section header at line " + strconv.Itoa(lineNo))
			}
			current = strings.TrimSpace(line[1 : len(line)-1])
			f.section(current)
			continue
		}
		if current == "" {
			return nil, apperrors.ErrConfig.Msg("key/value pair outside any section at line " + strconv.Itoa(lineNo))
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			return nil, apperrors.ErrConfig.Msg("malformed key/value pair at line " + strconv.Itoa(lineNo))
		}
		key := strings.TrimSpace(line[:eq])
		val := strings.TrimSpace(line[eq+1:])
		f.section(current).set(key, val)
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.ErrConfig.MsgErr("failed to read config file", err)
	}
	return f, nil
}

func stripComment(line string) string {
	for _, marker := range []string{"#", ";"} {
		if i := strings.Index(line, marker); i >= 0 {
			line = line[:i]
		}
	}
	return line
}
