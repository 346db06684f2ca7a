package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limulus26/Nmapx/internal/errors"
)

const showFixture = `<?xml version="1.0"?>
<nmaprun args="nmap -sCV -p 22 10.0.0.1">
  <host>
    <address addr="10.0.0.1" addrtype="ipv4"/>
    <ports>
      <port protocol="tcp" portid="22">
        <state state="open"/>
        <service name="ssh" product="OpenSSH" version="9.6p1"/>
        <script id="ssh-hostkey" output="256 aa:bb (ED25519)"/>
      </port>
    </ports>
  </host>
</nmaprun>`

func writeArtifact(t *testing.T, root, phase, name, content string) {
	t.Helper()
	dir := filepath.Join(root, phase)
	require.NoError(t, os.MkdirAll(dir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestShowRun(t *testing.T) {
	color.NoColor = true

	root := t.TempDir()
	writeArtifact(t, root, "1.0_discovery_scan", "10.0.0.1.xml", showFixture)
	writeArtifact(t, root, "1.0_discovery_scan", "10.0.0.1.nmap", "ignored")
	writeArtifact(t, root, "2.0_script_scan", "10.0.0.1.xml", showFixture)
	writeArtifact(t, root, "2.0_script_scan", "10.0.0.2.xml", "<nmaprun")

	var buf bytes.Buffer
	require.NoError(t, showRun(&buf, root, ""))

	out := buf.String()
	assert.Contains(t, out, "[*] 10.0.0.1 » 1.0_discovery_scan")
	assert.Contains(t, out, "[*] 10.0.0.1 » 2.0_script_scan")
	assert.Contains(t, out, "OpenSSH 9.6p1")
	assert.Contains(t, out, "ssh-hostkey")
	assert.Contains(t, out, "[*] 10.0.0.2 » 2.0_script_scan")
	assert.Contains(t, out, "✗")
}

func TestShowRunPhaseFilter(t *testing.T) {
	color.NoColor = true

	root := t.TempDir()
	writeArtifact(t, root, "1.0_discovery_scan", "10.0.0.1.xml", showFixture)
	writeArtifact(t, root, "2.0_script_scan", "10.0.0.1.xml", showFixture)

	var buf bytes.Buffer
	require.NoError(t, showRun(&buf, root, "2.0_script_scan"))
	assert.NotContains(t, buf.String(), "1.0_discovery_scan")
	assert.Contains(t, buf.String(), "2.0_script_scan")
}

func TestShowRunEmpty(t *testing.T) {
	root := t.TempDir()

	var buf bytes.Buffer
	require.NoError(t, showRun(&buf, root, ""))
	assert.Contains(t, buf.String(), "No results found")
}

func TestShowRunMissingDir(t *testing.T) {
	var buf bytes.Buffer
	err := showRun(&buf, filepath.Join(t.TempDir(), "absent"), "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeFileNotFound))
}
