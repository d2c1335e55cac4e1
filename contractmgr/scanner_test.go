package contractmgr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findingRules(findings []Finding) []string {
	rules := make([]string, 0, len(findings))
	for _, finding := range findings {
		rules = append(rules, finding.RuleID)
	}
	return rules
}

func TestScanSourceRules(t *testing.T) {
	tests := []struct {
		name        string
		source      string
		allowUnsafe bool
		wantRules   []string
		wantMax     Severity
	}{
		{
			name:      "clean contract",
			source:    "pragma solidity ^0.8.0; contract A { function f() external pure returns (uint) { return 1; } }",
			wantRules: []string{},
		},
		{
			name:      "unguarded low-level call",
			source:    `contract A { function f(address p) external { (bool ok,) = p.call{value: 1}(""); require(ok); } }`,
			wantRules: []string{"reentrancy"},
			wantMax:   SeverityWarning,
		},
		{
			name:      "guarded low-level call",
			source:    `contract A { function f(address p) external nonReentrant { (bool ok,) = p.call(""); require(ok); } }`,
			wantRules: []string{},
		},
		{
			name:      "tx.origin auth",
			source:    "contract A { modifier onlyOwner() { require(tx.origin == owner); _; } address owner; }",
			wantRules: []string{"tx-origin"},
			wantMax:   SeverityWarning,
		},
		{
			name:      "timestamp logic",
			source:    "contract A { function late() external view returns (bool) { return block.timestamp > 1000; } }",
			wantRules: []string{"timestamp"},
			wantMax:   SeverityInfo,
		},
		{
			name:      "selfdestruct disallowed",
			source:    "contract A { function kill() external { selfdestruct(payable(msg.sender)); } }",
			wantRules: []string{"selfdestruct"},
			wantMax:   SeverityError,
		},
		{
			name:        "selfdestruct allowed",
			source:      "contract A { function kill() external { selfdestruct(payable(msg.sender)); } }",
			allowUnsafe: true,
			wantRules:   []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := scanSource(tt.source, tt.allowUnsafe)
			assert.ElementsMatch(t, tt.wantRules, findingRules(findings))
			for _, finding := range findings {
				assert.NotEmpty(t, finding.Message)
				if len(tt.wantRules) == 1 {
					assert.Equal(t, tt.wantMax, finding.Severity)
				}
			}
		})
	}
}

func TestScanSourceMultipleFindings(t *testing.T) {
	source := `
contract Risky {
    address owner;
    function pay(address target) external {
        require(tx.origin == owner);
        if (block.timestamp % 2 == 0) {
            (bool ok,) = target.call{value: 1 ether}("");
            require(ok);
        }
    }
    function kill() external { selfdestruct(payable(owner)); }
}`
	findings := scanSource(source, false)
	require.Len(t, findings, 4)
	assert.ElementsMatch(t, []string{"reentrancy", "tx-origin", "timestamp", "selfdestruct"}, findingRules(findings))
}
