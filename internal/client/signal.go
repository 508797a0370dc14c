package client

import (
	"github.com/fivetwenty-io/gdapi/pkg/gdapi"
)

// Signal reports a condition. With ThrowExceptions the condition comes back
// as a *gdapi.APIError whose kind follows the status map; otherwise details
// is handed back and the error is nil.
func (c *Client) Signal(message string, status any, details any) (any, error) {
	c.options.Metrics.RecordSignal(status)

	if !c.options.ThrowExceptions {
		c.logger.Debug("Condition returned as value", map[string]interface{}{
			"message": message,
			"status":  status,
		})

		return details, nil
	}

	return nil, gdapi.NewAPIError(message, status, details)
}
