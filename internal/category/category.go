// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package category infers an AL-parameter category tag from a CVE's
// CPE strings. The priority order below is the spec: re-ordering it
// changes results for real CVEs, so any change needs a CPE->category
// regression corpus alongside it.
package category

import "strings"

const Default = "default"

type rule struct {
	tag       string
	substrs   []string
}

// rules is evaluated top to bottom; the first matching rule wins.
var rules = []rule{
	{"php", []string{"php"}},
	{"webapps", []string{"wordpress", "joomla"}},
	{"windows", []string{"microsoft", "windows"}},
	{"linux", []string{"linux", "kernel"}},
	{"android", []string{"android", "google:android"}},
	{"ios", []string{"apple:iphone_os", "ios"}},
	{"macos", []string{"apple:mac_os_x", "macos"}},
	{"java", []string{"oracle:java", ":java", "openjdk", "jdk"}},
	{"dos", []string{"denial_of_service", ":dos", "/dos"}},
	{"asp", []string{"asp.net", "aspnet"}},
	{"hardware", []string{":h:", "firmware", "hardware"}},
	{"remote", []string{"remote"}},
	{"local", []string{"local"}},
}

// Infer returns the category tag for the given CPE strings, matched
// case-insensitively against the priority table above. An empty list
// (or no match) yields "default".
func Infer(cpe []string) string {
	if len(cpe) == 0 {
		return Default
	}

	lowered := make([]string, len(cpe))
	for i, c := range cpe {
		lowered[i] = strings.ToLower(c)
	}

	for _, r := range rules {
		for _, s := range lowered {
			if matchesAny(s, r.substrs) {
				return r.tag
			}
		}
	}
	return Default
}

func matchesAny(s string, substrs []string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
