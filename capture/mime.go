// SPDX-License-Identifier: EPL-2.0

package capture

// DefaultMIMEPreferences lists recording formats, most preferred first.
var DefaultMIMEPreferences = []string{
	"audio/wav",
	"audio/webm;codecs=opus",
	"audio/webm",
	"audio/ogg;codecs=opus",
}

// SelectMIMEType returns the first preference probe accepts.
func SelectMIMEType(prefs []string, probe func(string) bool) (string, error) {
	for _, p := range prefs {
		if probe(p) {
			return p, nil
		}
	}

	return "", ErrNoSupportedType
}
