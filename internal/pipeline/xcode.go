package pipeline

import (
	"fmt"
	"regexp"
)

// StampPbxprojVersion rewrites MARKETING_VERSION and CURRENT_PROJECT_VERSION
// in project.pbxproj content. Unlike build.gradle, every occurrence is
// rewritten: the pbxproj repeats both keys once per build configuration and
// they must stay in agreement.
func StampPbxprojVersion(content, version string, build int) (string, error) {
	marketingRe := regexp.MustCompile(`(MARKETING_VERSION = )[^;]+;`)
	if !marketingRe.MatchString(content) {
		return "", fmt.Errorf("MARKETING_VERSION not found in project.pbxproj")
	}
	content = marketingRe.ReplaceAllString(content, fmt.Sprintf("${1}%s;", version))

	currentRe := regexp.MustCompile(`(CURRENT_PROJECT_VERSION = )[^;]+;`)
	if !currentRe.MatchString(content) {
		return "", fmt.Errorf("CURRENT_PROJECT_VERSION not found in project.pbxproj")
	}
	content = currentRe.ReplaceAllString(content, fmt.Sprintf("${1}%d;", build))

	return content, nil
}

// SetSchemeConfiguration rewrites every buildConfiguration attribute in a
// .xcscheme file to the given configuration ("Debug" or "Release"). The
// scheme repeats the attribute once per action (launch, archive, profile,
// analyze); all of them switch together.
func SetSchemeConfiguration(content, configuration string) (string, error) {
	re := regexp.MustCompile(`(buildConfiguration\s*=\s*")[^"]*(")`)
	if !re.MatchString(content) {
		return "", fmt.Errorf("no buildConfiguration attribute found in scheme")
	}
	return re.ReplaceAllString(content, "${1}"+configuration+"${2}"), nil
}
