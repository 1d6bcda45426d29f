package axigen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNegativeReply(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  bool
	}{
		{"ok reply", "+OK domain selected", false},
		{"err token", "-ERR no such domain", true},
		{"error word", "ERROR: something broke", true},
		{"unknown command", "unknown command SHOW", true},
		{"failed word", "operation failed", true},
		{"mixed case", "-Err Unknown Object", true},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNegativeReply(tt.reply))
		})
	}
}

func TestParseDomainList(t *testing.T) {
	raw := "LIST domains\r\n" +
		"domains on this server:\r\n" +
		"-------------------------\r\n" +
		"name            status\r\n" +
		"podbeez.com     enabled\r\n" +
		"ace.example     disabled\r\n" +
		"podbeez.com     enabled\r\n" + // duplicate line
		"noperiodtoken\r\n" +
		"+OK command completed\r\n"

	domains := ParseDomainList(raw)

	assert.Equal(t, []DomainInfo{
		{Name: "podbeez.com", Status: "enabled"},
		{Name: "ace.example", Status: "disabled"},
	}, domains)
}

func TestParseDomainList_NoStatusColumn(t *testing.T) {
	domains := ParseDomainList("x.com\r\ny.org\r\n")
	assert.Equal(t, []DomainInfo{{Name: "x.com"}, {Name: "y.org"}}, domains)
}

func TestParseQuotaShow(t *testing.T) {
	raw := "General parameters:\r\n" +
		"totalMessageSize = 2097152 [explicit, overrides inherited value: 1048576]\r\n" +
		"totalMessageCount = 1000 [explicit]\r\n" +
		"inherited from domain defaults\r\n" +
		"not-a-pair-line\r\n"

	quotas := ParseQuotaShow(raw)

	assert.Equal(t, "2097152", quotas["totalMessageSize"])
	assert.Equal(t, "1000", quotas["totalMessageCount"])
	assert.Len(t, quotas, 2)
}

func TestAssignedKBFromQuotas(t *testing.T) {
	tests := []struct {
		name   string
		quotas map[string]string
		want   int64
	}{
		{"explicit value", map[string]string{"totalMessageSize": "2097152"}, 2097152},
		{"missing key", map[string]string{"totalMessageCount": "1000"}, 0},
		{"zero means unset", map[string]string{"totalMessageSize": "0"}, 0},
		{"negative means unset", map[string]string{"totalMessageSize": "-1"}, 0},
		{"garbage means unset", map[string]string{"totalMessageSize": "unlimited"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AssignedKBFromQuotas(tt.quotas))
		})
	}
}
