package client

import (
	"grabber/application/http"
)

type Options struct {
	Send    SendOptions
	Receive ReceiveOptions
}

type SendOptions struct {
	Encode http.EncodeOptions
}

type ReceiveOptions struct {
	// StrictResponse fails with [*MalformedResponseError] when the response
	// didn't parse cleanly. Otherwise the degraded response is returned as is.
	StrictResponse bool

	// UseReceivedReasonPhrase uses reason phrase from response.
	// If false, the reason phrase will instead be filled with default value for the status code.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-4-9
	UseReceivedReasonPhrase bool
}

var DefaultOptions = Options{
	Send: SendOptions{
		Encode: http.DefaultEncodeOptions,
	},
	Receive: ReceiveOptions{
		UseReceivedReasonPhrase: true,
	},
}
