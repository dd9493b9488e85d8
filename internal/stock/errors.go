package stock

import "errors"

// ErrBrokerUnavailable is returned by Publish when the broker did not acknowledge the intent.
var ErrBrokerUnavailable = errors.New("broker unavailable")

// ErrConsumerRunning is returned by Start when the service is already consuming.
var ErrConsumerRunning = errors.New("stock consumer already running")
