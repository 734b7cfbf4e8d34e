package incident

import "regexp"

// Match scans rules in order and returns the first whose pattern matches
// the error text, case-insensitively. A rule with an invalid stored pattern
// is skipped; it never fails the scan.
func Match(rules []*KnownErrorRule, errText string) *KnownErrorRule {
	for _, rule := range rules {
		re, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil {
			continue
		}
		if re.MatchString(errText) {
			return rule
		}
	}
	return nil
}
