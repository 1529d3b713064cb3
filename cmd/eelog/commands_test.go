package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/outofforest/eelog/machine"
	"github.com/outofforest/eelog/slot"
)

func TestAppendRead(t *testing.T) {
	requireT := require.New(t)

	device := filepath.Join(t.TempDir(), "eeprom.img")

	out, err := execute(t, "", "append", "--device", device, "Hello", "EEPROM")
	requireT.NoError(err)
	requireT.Equal("Entry written. Memory address: 0X00\n", out)

	out, err = execute(t, "", "append", "--device", device, "Second")
	requireT.NoError(err)
	requireT.Equal("Entry written. Memory address: 0X40\n", out)

	out, err = execute(t, "", "read", "--device", device)
	requireT.NoError(err)
	requireT.Equal("Log entry: Hello EEPROM. Memory address: 0X00\n"+
		"Log entry: Second. Memory address: 0X40\n"+
		machine.MsgNoEntries+"\n", out)

	info, err := os.Stat(device)
	requireT.NoError(err)
	requireT.EqualValues(slot.Capacity, info.Size())
}

func TestAppendToFullLog(t *testing.T) {
	requireT := require.New(t)

	device := filepath.Join(t.TempDir(), "eeprom.img")
	for i := 0; i < slot.Slots; i++ {
		_, err := execute(t, "", "append", "--device", device, "Test")
		requireT.NoError(err)
	}

	_, err := execute(t, "", "append", "--device", device, "Test")
	requireT.Error(err)

	out, err := execute(t, "", "erase", "--device", device)
	requireT.NoError(err)
	requireT.Equal("Erased 32 slots.\n", out)

	out, err = execute(t, "", "append", "--device", device, "Test")
	requireT.NoError(err)
	requireT.Equal("Entry written. Memory address: 0X00\n", out)
}

func TestRun(t *testing.T) {
	requireT := require.New(t)

	device := filepath.Join(t.TempDir(), "eeprom.img")

	out, err := execute(t, "write\nbogus\nread\n", "run", "--device", device)
	requireT.NoError(err)
	requireT.Equal("Boot.\n"+
		machine.Prompt+"\n"+"write\n"+machine.MsgWriting+"\n"+
		machine.Prompt+"\n"+"bogus\n"+machine.MsgInvalidInput+"\n"+
		machine.Prompt+"\n"+"read\n"+machine.MsgReading+"\n"+
		"Log entry: Boot. Memory address: 0X00\n"+
		"Log entry: Test. Memory address: 0X40\n"+
		machine.MsgNoEntries+"\n"+
		machine.Prompt+"\n", out)

	// Second boot appends next boot entry after the existing ones.
	out, err = execute(t, "read\n", "run", "--device", device)
	requireT.NoError(err)
	requireT.Contains(out, "Log entry: Boot. Memory address: 0X80\n")
}

func TestInspect(t *testing.T) {
	requireT := require.New(t)

	device := filepath.Join(t.TempDir(), "eeprom.img")
	_, err := execute(t, "", "append", "--device", device, "Boot")
	requireT.NoError(err)

	out, err := execute(t, "", "inspect", "--device", device)
	requireT.NoError(err)

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	requireT.Len(lines, slot.Slots+2)
	requireT.Equal("0X0000 valid   Boot", lines[0])
	requireT.Equal("0X0040 invalid ", lines[1])
	requireT.Equal("orphans: 0", lines[slot.Slots])
	requireT.True(strings.HasPrefix(lines[slot.Slots+1], "fingerprint: "))
}

func TestConfigFile(t *testing.T) {
	requireT := require.New(t)

	dir := t.TempDir()
	device := filepath.Join(dir, "from-config.img")
	cfgPath := filepath.Join(dir, "eelog.yaml")
	requireT.NoError(os.WriteFile(cfgPath, []byte("device:\n  path: "+device+"\nlog:\n  level: error\n"), 0o600))

	_, err := execute(t, "", "erase", "--config", cfgPath)
	requireT.NoError(err)

	_, err = os.Stat(device)
	requireT.NoError(err)

	_, err = execute(t, "", "read", "--config", cfgPath, "--log-level", "loud")
	requireT.Error(err)
}

func execute(t *testing.T, input string, args ...string) (string, error) {
	for _, env := range []string{"EELOG_CONFIG", "EELOG_DEVICE", "EELOG_ATTEMPTS", "EELOG_RETRY_DELAY",
		"EELOG_STEP_DELAY", "EELOG_LOG_LEVEL", "EELOG_LOG_FORMAT"} {
		t.Setenv(env, "")
	}
	t.Setenv("EELOG_STEP_DELAY", "0s")

	out := &bytes.Buffer{}
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	return out.String(), err
}
