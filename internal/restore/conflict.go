package restore

import (
	"net/http"
	"strings"

	"github.com/ALT-F4-LLC/spacerestore/internal/api"
)

// conflictPhrases are the error texts the API has been observed to use for
// duplicates. The list is empirical.
var conflictPhrases = []string{
	"already taken",
	"been taken",
	"already exists",
	"duplicate",
	"conflict",
	"name taken",
	"slug taken",
}

// IsConflict reports whether err means the resource already exists. A 409
// status decides first; otherwise the error text is matched against known
// duplicate phrases.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	if api.StatusOf(err) == http.StatusConflict {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, phrase := range conflictPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
