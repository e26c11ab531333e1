package uuidutil

import (
	"encoding/base64"
	"strings"

	"github.com/google/uuid"
)

// escaper keeps the identifier within [a-zA-Z0-9] so it can be embedded in MQTT client ids.
var escaper = strings.NewReplacer("9", "99", "-", "90", "_", "91")

// ShortUUID refer to https://stackoverflow.com/questions/37934162/output-uuid-in-go-as-a-short-string
func ShortUUID() string {
	id := uuid.New()
	return escaper.Replace(base64.RawURLEncoding.EncodeToString(id[:]))
}
