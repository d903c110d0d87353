package core

import (
	"context"

	"gopkg.in/yaml.v3"
)

// Configurable is implemented by modules that accept YAML configuration.
// Configure receives the raw node found under modules.<id> and is only
// called when that section exists.
type Configurable interface {
	Configure(node *yaml.Node) error
}

// Provisioner is implemented by modules that need setup after
// configuration: defaults, clients, database handles, service publication.
type Provisioner interface {
	Provision(ctx *AppContext) error
}

// Validator is implemented by modules that can check their configuration.
// Validate is called after Provision and must not have side effects.
type Validator interface {
	Validate() error
}

// Starter is implemented by modules that run background work such as
// listeners. Start must not block.
type Starter interface {
	Start() error
}

// Stopper is implemented by modules holding resources. Stop is called in
// reverse start order.
type Stopper interface {
	Stop(ctx context.Context) error
}
