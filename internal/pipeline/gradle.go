package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shipmobile/mobctl/internal/config"
)

// RedactedPlaceholder replaces secret values when gradle.properties is
// restored after a build. The restore is redact-on-restore by contract:
// neither the injected secrets nor any secrets present in the backup may
// reappear in the working tree.
const RedactedPlaceholder = "*****"

// Property keys the Android signing config in build.gradle reads.
const (
	propStoreFile     = "MOBCTL_UPLOAD_STORE_FILE"
	propKeyAlias      = "MOBCTL_UPLOAD_KEY_ALIAS"
	propStorePassword = "MOBCTL_UPLOAD_STORE_PASSWORD"
	propKeyPassword   = "MOBCTL_UPLOAD_KEY_PASSWORD"
)

// secretProps are the keys whose values are redacted on restore.
var secretProps = []string{propStorePassword, propKeyPassword}

// InjectSigningProperties sets the four signing keys in gradle.properties
// content. For each key, only the first matching line is rewritten; a key
// with no existing line is appended.
func InjectSigningProperties(content string, creds config.AndroidCredentials) string {
	pairs := []struct{ key, value string }{
		{propStoreFile, creds.StoreFile},
		{propKeyAlias, creds.KeyAlias},
		{propStorePassword, creds.StorePassword},
		{propKeyPassword, creds.KeyPassword},
	}
	for _, p := range pairs {
		content = setProperty(content, p.key, p.value)
	}
	return content
}

// RedactSigningProperties replaces the values of the secret signing keys
// with the redaction placeholder. Non-secret keys (store file, alias) keep
// their values; those are not sensitive and live in the committed file.
func RedactSigningProperties(content string) string {
	for _, key := range secretProps {
		re := regexp.MustCompile(`(?m)^(` + regexp.QuoteMeta(key) + `)=.*$`)
		content = replaceFirst(re, content, "${1}="+RedactedPlaceholder)
	}
	return content
}

// setProperty rewrites the first "key=..." line, appending the pair if the
// key is absent.
func setProperty(content, key, value string) string {
	re := regexp.MustCompile(`(?m)^(` + regexp.QuoteMeta(key) + `)=.*$`)
	if re.MatchString(content) {
		return replaceFirst(re, content, "${1}="+value)
	}
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + key + "=" + value + "\n"
}

// StampGradleVersion rewrites the first versionName and versionCode entries
// in build.gradle content. Only the first occurrence of each is touched:
// library subprojects re-declare them and must keep their own values.
func StampGradleVersion(content, version string, build int) (string, error) {
	nameRe := regexp.MustCompile(`(?m)^(\s*versionName\s+)"[^"]*"`)
	if !nameRe.MatchString(content) {
		return "", fmt.Errorf("versionName not found in build.gradle")
	}
	content = replaceFirst(nameRe, content, fmt.Sprintf(`${1}"%s"`, version))

	codeRe := regexp.MustCompile(`(?m)^(\s*versionCode\s+)\d+`)
	if !codeRe.MatchString(content) {
		return "", fmt.Errorf("versionCode not found in build.gradle")
	}
	content = replaceFirst(codeRe, content, fmt.Sprintf("${1}%d", build))

	return content, nil
}

// replaceFirst applies re's replacement to the first match only.
func replaceFirst(re *regexp.Regexp, content, replacement string) string {
	done := false
	return re.ReplaceAllStringFunc(content, func(m string) string {
		if done {
			return m
		}
		done = true
		return re.ReplaceAllString(m, replacement)
	})
}
