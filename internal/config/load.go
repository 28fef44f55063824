package config

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/stcorp/muninn/internal/apperrors"
)

// SearchPathEnv is the environment variable spec.md §6 documents as the
// colon-separated list of files and directories consulted to locate
// "<id>.cfg" when Load is given a bare archive id.
const SearchPathEnv = "MUNINN_CONFIG_PATH"

// Load locates and parses the archive configuration file for idOrPath.
// idOrPath is resolved in order: an http(s) URL is fetched directly; a path
// containing a path separator (or with a ".cfg" suffix) is read directly;
// otherwise idOrPath is treated as a bare archive id and resolved against
// the colon-separated SearchPathEnv, trying "<entry>/<id>.cfg" for each
// directory entry and "<entry>" itself when the entry is a file named
// "<id>.cfg".
func Load(idOrPath string) (*Config, apperrors.Error) {
	var r io.Reader
	switch {
	case strings.HasPrefix(idOrPath, "http://"), strings.HasPrefix(idOrPath, "https://"):
		resp, err := http.Get(idOrPath)
		if err != nil {
			return nil, apperrors.ErrConfig.MsgErr("failed to fetch config from "+idOrPath, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, apperrors.ErrConfig.Msg("failed to fetch config from " + idOrPath + ": status " + resp.Status)
		}
		r = resp.Body
	case strings.ContainsRune(idOrPath, filepath.Separator), strings.HasSuffix(idOrPath, ".cfg"):
		f, err := os.Open(idOrPath)
		if err != nil {
			return nil, apperrors.ErrConfig.MsgErr("failed to open config file "+idOrPath, err)
		}
		defer f.Close()
		r = f
	default:
		path, found := resolveOnSearchPath(idOrPath)
		if !found {
			return nil, apperrors.ErrConfig.Msg("no config file found for archive id " + idOrPath + " on " + SearchPathEnv)
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, apperrors.ErrConfig.MsgErr("failed to open config file "+path, err)
		}
		defer f.Close()
		r = f
	}

	ini, err := parseINI(r)
	if err != nil {
		return nil, err
	}
	return parseConfig(ini)
}

func resolveOnSearchPath(id string) (string, bool) {
	searchPath := os.Getenv(SearchPathEnv)
	if searchPath == "" {
		return "", false
	}
	for _, entry := range strings.Split(searchPath, ":") {
		if entry == "" {
			continue
		}
		info, err := os.Stat(entry)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			if filepath.Base(entry) == id+".cfg" {
				return entry, true
			}
			continue
		}
		candidate := filepath.Join(entry, id+".cfg")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}
