package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

// program adapts serve to the service manager's Start/Stop callbacks.
type program struct {
	g      *globalFlags
	cancel context.CancelFunc
	done   chan error
}

var _ service.Interface = (*program)(nil)

func (p *program) Start(_ service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() { p.done <- p.g.serve(ctx) }()
	return nil
}

func (p *program) Stop(_ service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	return <-p.done
}

// serviceConfig describes the installed unit. The absolute config path
// and data dir are baked into its arguments so the service does not
// depend on the installer's working directory.
func serviceConfig(g *globalFlags) (*service.Config, error) {
	args := []string{"service", "run"}
	if g.configPath != "" {
		abs, err := filepath.Abs(g.configPath)
		if err != nil {
			return nil, err
		}
		args = append(args, "--config", abs)
	}
	if g.dataDir != "" {
		abs, err := filepath.Abs(g.dataDir)
		if err != nil {
			return nil, err
		}
		args = append(args, "--data-dir", abs)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return &service.Config{
		Name:             "codeshift",
		DisplayName:      "codeshift",
		Description:      "Scheduled source translation and its HTTP gateway.",
		Arguments:        args,
		WorkingDirectory: wd,
	}, nil
}

func serviceCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage codeshift serve as a system service",
	}

	newService := func() (service.Service, error) {
		cfg, err := serviceConfig(g)
		if err != nil {
			return nil, err
		}
		return service.New(&program{g: g}, cfg)
	}

	for _, action := range service.ControlAction {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the system service", action),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, err := newService()
				if err != nil {
					return err
				}
				if err := service.Control(s, action); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "service %s: ok\n", action)
				return nil
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run under the service manager",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			s, err := newService()
			if err != nil {
				return err
			}
			return s.Run()
		},
	})
	return cmd
}
