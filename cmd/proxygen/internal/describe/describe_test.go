package describe

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broady/proxykit/cmd/proxygen/internal/flags"
)

func TestDescribe(t *testing.T) {
	cmd := &Cmd{
		Type:     "github.com/broady/proxykit/internal/testfixtures.CarInterface",
		Provider: flags.Provider{Provider: "source", Dir: "."},
	}

	var out bytes.Buffer
	require.NoError(t, cmd.run(context.Background(), &out))

	var got struct {
		IsInterface bool            `json:"isInterface"`
		FullName    string          `json:"fullName"`
		Methods     json.RawMessage `json:"methods"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.True(t, got.IsInterface)
	assert.Equal(t, cmd.Type, got.FullName)
	assert.Contains(t, string(got.Methods), `"Horsepower"`)
}

func TestDescribe_Manifest(t *testing.T) {
	cmd := &Cmd{
		Type:     "example.com/x.T",
		Provider: flags.Provider{Provider: "manifest", Manifest: "testdata/missing.yaml"},
	}
	assert.Error(t, cmd.run(context.Background(), &bytes.Buffer{}))
}
