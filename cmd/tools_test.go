package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcp-proxmox/internal/tools"
)

func TestWriteToolList_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeToolList(&buf, tools.DefaultRegistry(), outputTable))

	out := buf.String()
	assert.Contains(t, out, "get_nodes")
	assert.Contains(t, out, "create_container_snapshot")
	assert.Contains(t, out, "31 tools")
}

func TestWriteToolList_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeToolList(&buf, tools.DefaultRegistry(), outputJSON))

	var listing []toolListing
	require.NoError(t, json.Unmarshal(buf.Bytes(), &listing))
	require.Len(t, listing, 31)

	byName := map[string]toolListing{}
	for _, l := range listing {
		byName[l.Name] = l
	}
	assert.Equal(t, "power", byName["start_vm"].Action)
	assert.Empty(t, byName["get_nodes"].Action)
	assert.Empty(t, byName["get_nodes"].Args)

	status := byName["get_vm_status"]
	require.Len(t, status.Args, 2)
	assert.Equal(t, "vmid", status.Args[1].Name)
	assert.Equal(t, "integer", status.Args[1].Type)
	assert.True(t, status.Args[1].Required)
}

func TestWriteToolList_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorContains(t, writeToolList(&buf, tools.DefaultRegistry(), outputYAML), "unsupported output format")
}

func TestFormatArgSpecs(t *testing.T) {
	specs := []tools.ArgSpec{
		{Name: "node", Type: tools.TypeString, Required: true},
		{Name: "limit", Type: tools.TypeInteger},
	}
	assert.Equal(t, "node:string [limit:integer]", formatArgSpecs(specs))
	assert.Equal(t, "", formatArgSpecs(nil))
}
