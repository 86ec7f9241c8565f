package go_atoapay

import (
	"encoding/json"

	"github.com/stremovskyy/go-atoapay/log"
)

// RunOption controls behavior of a single API call.
type RunOption func(*runOptions)

// DryRunHandler receives info about a skipped request.
type DryRunHandler func(endpoint string, payload any)

type runOptions struct {
	dryRun       bool
	dryRunHandle DryRunHandler
	tags         map[string]string
}

var dryRunLogger = log.NewLogger("AtoaPay DryRun:")

// DryRun skips the underlying HTTP call.
//
// Optional handler can be provided to inspect payload.
func DryRun(handler ...DryRunHandler) RunOption {
	return func(o *runOptions) {
		o.dryRun = true
		if len(handler) > 0 && handler[0] != nil {
			o.dryRunHandle = handler[0]
			return
		}
		o.dryRunHandle = defaultDryRunHandler
	}
}

// WithRecordTags adds tags to the recorder entries of a single call.
func WithRecordTags(tags map[string]string) RunOption {
	return func(o *runOptions) {
		if len(tags) == 0 {
			return
		}
		if o.tags == nil {
			o.tags = make(map[string]string, len(tags))
		}
		for k, v := range tags {
			o.tags[k] = v
		}
	}
}

func collectRunOptions(opts []RunOption) *runOptions {
	if len(opts) == 0 {
		return &runOptions{}
	}
	r := &runOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (o *runOptions) isDryRun() bool {
	return o != nil && o.dryRun
}

func (o *runOptions) handleDryRun(endpoint string, payload any) {
	if o == nil || !o.dryRun {
		return
	}
	if o.dryRunHandle != nil {
		o.dryRunHandle(endpoint, payload)
	}
}

func defaultDryRunHandler(endpoint string, payload any) {
	dryRunLogger.Info("Dry run: skipping request to %s", endpoint)
	if payload == nil {
		dryRunLogger.Info("Dry run payload: <nil>")
		return
	}
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		dryRunLogger.Info("Dry run payload: unable to marshal %T: %v", payload, err)
		return
	}
	dryRunLogger.Info("Dry run payload:\n%s", string(out))
}
