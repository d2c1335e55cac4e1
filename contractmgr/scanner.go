//
// Created on 2023/5/23 by khanghh
// Project: github.com/verichains/chain-sandbox
// Copyright (c) 2023 Verichains Lab
//

package contractmgr

import (
	"regexp"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Finding is one security heuristics hit. Findings are advisory: they ride
// along with the compile result and the logs, they are never persisted.
type Finding struct {
	Severity Severity
	RuleID   string
	Message  string
}

var (
	lowLevelCallRegex    = regexp.MustCompile(`\.call\s*[({]`)
	reentrancyGuardRegex = regexp.MustCompile(`nonReentrant|ReentrancyGuard`)
	txOriginRegex        = regexp.MustCompile(`tx\.origin`)
	timestampRegex       = regexp.MustCompile(`block\.timestamp|\bnow\b`)
	selfDestructRegex    = regexp.MustCompile(`selfdestruct\s*\(|suicide\s*\(`)
)

// scanSource runs the pattern-based heuristics over raw contract source.
// Pure function, no external calls; not a substitute for real analysis.
func scanSource(source string, allowUnsafeCode bool) []Finding {
	var findings []Finding
	if lowLevelCallRegex.MatchString(source) && !reentrancyGuardRegex.MatchString(source) {
		findings = append(findings, Finding{
			Severity: SeverityWarning,
			RuleID:   "reentrancy",
			Message:  "low-level external call without a reentrancy guard",
		})
	}
	if txOriginRegex.MatchString(source) {
		findings = append(findings, Finding{
			Severity: SeverityWarning,
			RuleID:   "tx-origin",
			Message:  "tx.origin used for authorization",
		})
	}
	if timestampRegex.MatchString(source) {
		findings = append(findings, Finding{
			Severity: SeverityInfo,
			RuleID:   "timestamp",
			Message:  "logic derived from block timestamp",
		})
	}
	if !allowUnsafeCode && selfDestructRegex.MatchString(source) {
		findings = append(findings, Finding{
			Severity: SeverityError,
			RuleID:   "selfdestruct",
			Message:  "self-destruct present while unsafe code is disallowed",
		})
	}
	return findings
}
