package services

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophdocs/internal/common"
)

// DeriveKey returns the session key for a versioned document URL: the hex
// sha256 of the URL and the generation. Generation is hashed on its own as
// well, so distinct generations never share a key even if the URL does not
// carry one.
func DeriveKey(documentURL string, generation int64) string {
	h := sha256.New()
	h.Write([]byte(documentURL))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(generation, 10)))
	return hex.EncodeToString(h.Sum(nil))
}

// DocumentURL is the generation-tagged fetch URL of filename under base.
func DocumentURL(base, filename string, generation int64) string {
	return strings.TrimRight(base, "/") + common.FilesPath + url.PathEscape(filename) + "?v=" + strconv.FormatInt(generation, 10)
}

// CallbackURL is the save-back endpoint under base.
func CallbackURL(base string) string {
	return strings.TrimRight(base, "/") + common.CallbackPath
}

// NormalizeBaseURL trims trailing slashes and adds http:// to bare
// host[:port] values.
func NormalizeBaseURL(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return strings.TrimRight(base, "/")
}
