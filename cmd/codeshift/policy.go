package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/flemzord/codeshift/internal/config"
)

// policyValue is a pflag.Value accepting only the window policies.
type policyValue string

var _ pflag.Value = (*policyValue)(nil)

func (p *policyValue) String() string { return string(*p) }

func (p *policyValue) Set(s string) error {
	switch s {
	case config.PolicyLines, config.PolicyTokens:
		*p = policyValue(s)
		return nil
	}
	return fmt.Errorf("must be %q or %q", config.PolicyLines, config.PolicyTokens)
}

func (p *policyValue) Type() string { return "policy" }
