package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/appkins-org/openstack-inventory/pkg/inventory"
	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack/orchestration/v1/stacks"
)

// GetStack finds a Heat stack by name. It returns nil when the stack does
// not exist.
func (c *Clients) GetStack(ctx context.Context, name string) (*inventory.Stack, error) {
	client, err := c.GetOrchestrationClient(ctx)
	if err != nil {
		return nil, err
	}

	stack, err := stacks.Find(ctx, client, name).Extract()
	if err != nil {
		if gophercloud.ResponseCodeIs(err, http.StatusNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not find stack %s: %w", name, err)
	}

	outputs := make(map[string]string, len(stack.Outputs))
	for _, output := range stack.Outputs {
		key, _ := output["output_key"].(string)
		if key == "" {
			continue
		}
		value, err := outputValue(output["output_value"])
		if err != nil {
			return nil, fmt.Errorf("invalid value for stack output %s: %w", key, err)
		}
		outputs[key] = value
	}

	return &inventory.Stack{
		Name:    stack.Name,
		Status:  stack.Status,
		Outputs: outputs,
	}, nil
}

// outputValue renders a stack output as a string. Non string values are
// JSON encoded.
func outputValue(v any) (string, error) {
	switch value := v.(type) {
	case nil:
		return "", nil
	case string:
		return value, nil
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}
