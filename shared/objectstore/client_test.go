package objectstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name   string
		folder string
		object string
		want   string
	}{
		{name: "simple join", folder: "input", object: "body_abc", want: "input/body_abc"},
		{name: "trailing slash on folder", folder: "input/", object: "body_abc", want: "input/body_abc"},
		{name: "leading slash on name", folder: "output", object: "/result_abc", want: "output/result_abc"},
		{name: "empty folder", folder: "", object: "body_abc", want: "body_abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.folder, tt.object))
		})
	}
}

func TestPublicURL(t *testing.T) {
	client := &Client{config: &Config{
		Endpoint: "http://localhost:9000",
		Bucket:   "tattoo-images",
	}}

	assert.Equal(t,
		"http://localhost:9000/tattoo-images/output/result_body_abc",
		client.PublicURL("output", "result_body_abc"),
	)

	client.config.PublicBaseURL = "https://cdn.example.com/"
	assert.Equal(t,
		"https://cdn.example.com/tattoo-images/input/body_abc",
		client.PublicURL("input", "body_abc"),
	)
}
