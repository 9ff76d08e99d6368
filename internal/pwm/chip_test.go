package pwm_test

import (
	stderrors "errors"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/pwmctl/internal/errors"
	"codeberg.org/mutker/pwmctl/internal/logger"
	"codeberg.org/mutker/pwmctl/internal/pwm"
	"codeberg.org/mutker/pwmctl/internal/sysfs"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chipPath = "/sys/class/pwm/pwmchip0"

// exportOnWrite makes the fake behave like the kernel: writing N to the
// chip's export file creates pwmN with zeroed attributes.
func exportOnWrite(sys *sysfs.FakeSysfs) {
	sys.OnWriteFile = func(path, value string) {
		if filepath.Base(path) != "export" {
			return
		}
		sys.Add(filepath.Join(filepath.Dir(path), "pwm"+value), map[string]string{
			"period":     "0",
			"duty_cycle": "0",
			"enable":     "0",
			"polarity":   "normal",
		})
	}
}

func TestChannelCount(t *testing.T) {
	tests := []struct {
		name  string
		attrs map[string]string
		want  int
	}{
		{"present", map[string]string{"npwm": "2"}, 2},
		{"absent", map[string]string{}, 0},
		{"garbage", map[string]string{"npwm": "two"}, 0},
		{"negative", map[string]string{"npwm": "-1"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := sysfs.NewFakeSysfs()
			sys.Add(chipPath, tt.attrs)

			chip := pwm.NewChip(sys, chipPath, logger.Nop())
			assert.Equal(t, tt.want, chip.ChannelCount())
		})
	}
}

func TestChipIdentity(t *testing.T) {
	sys := sysfs.NewFakeSysfs()
	sys.Add(chipPath, nil)

	chip := pwm.NewChip(sys, chipPath, nil)
	assert.Equal(t, "pwmchip0", chip.Name())
	assert.Equal(t, chipPath, chip.Path())
	assert.Equal(t, chipPath+"/pwm3", chip.ChannelPath(3))
}

func TestExportWritesIndex(t *testing.T) {
	sys := sysfs.NewFakeSysfs()
	sys.Add(chipPath, map[string]string{"npwm": "2"})
	exportOnWrite(sys)

	var exporter pwm.Exporter = pwm.NewChip(sys, chipPath, logger.Nop())
	ch, err := exporter.Export(1)
	require.NoError(t, err)

	assert.Equal(t, []string{"1"}, sys.Files[chipPath+"/export"])
	assert.Equal(t, chipPath+"/pwm1", ch.Path())
	assert.Equal(t, "pwm1", ch.Name())

	require.NoError(t, ch.SetFrequencyAndRatio(1000, 0.5))
	require.NoError(t, ch.SetEnabled(true))
	s, err := ch.State()
	require.NoError(t, err)
	assert.True(t, s.Enabled)
	assert.InDelta(t, 0.5, s.Ratio(), 1e-9)
}

func TestExportIsIdempotent(t *testing.T) {
	sys := sysfs.NewFakeSysfs()
	sys.Add(chipPath, map[string]string{"npwm": "2"})
	exportOnWrite(sys)
	chip := pwm.NewChip(sys, chipPath, logger.Nop())

	first, err := chip.Export(0)
	require.NoError(t, err)
	second, err := chip.Export(0)
	require.NoError(t, err)

	assert.Len(t, sys.Files[chipPath+"/export"], 1, "second export must not write")
	assert.Equal(t, first.Path(), second.Path())
}

func TestExportAlreadyExported(t *testing.T) {
	sys := sysfs.NewFakeSysfs()
	sys.Add(chipPath, map[string]string{"npwm": "1"})
	sys.Add(chipPath+"/pwm0", map[string]string{"period": "10", "duty_cycle": "5"})

	ch, err := pwm.NewChip(sys, chipPath, logger.Nop()).Export(0)
	require.NoError(t, err)

	assert.Empty(t, sys.Files)
	p, err := ch.Period()
	require.NoError(t, err)
	assert.EqualValues(t, 10, p)
}

func TestExportReadableExportAttributeSkipsWrite(t *testing.T) {
	sys := sysfs.NewFakeSysfs()
	sys.Add(chipPath, map[string]string{"npwm": "1", "export": ""})

	ch, err := pwm.NewChip(sys, chipPath, logger.Nop()).Export(0)
	require.NoError(t, err)
	assert.Empty(t, sys.Files)

	// The channel was never created; the failure shows up on use.
	err = ch.SetPeriod(1000)
	require.Error(t, err)
	assert.True(t, pwm.IsInterfaceError(err))
}

func TestExportWriteFailure(t *testing.T) {
	sys := sysfs.NewFakeSysfs()
	sys.Add(chipPath, map[string]string{"npwm": "1"})
	sys.WriteFileError = stderrors.New("permission denied")

	_, err := pwm.NewChip(sys, chipPath, logger.Nop()).Export(0)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, pwm.ErrExportFailed))
}

func TestExportNegativeIndex(t *testing.T) {
	sys := sysfs.NewFakeSysfs()
	sys.Add(chipPath, nil)

	_, err := pwm.NewChip(sys, chipPath, logger.Nop()).Export(-1)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidArgument))
	assert.Empty(t, sys.Files)
}

func TestListChips(t *testing.T) {
	sys := sysfs.NewFakeSysfs()
	sys.Add("/sys/class/pwm/pwmchip0", map[string]string{"subsystem": "pwm", "npwm": "2"})
	sys.Add("/sys/class/pwm/pwmchip2", map[string]string{"subsystem": "pwm", "npwm": "4"})
	sys.Add("/sys/class/leds/led0", map[string]string{"subsystem": "leds"})

	chips, err := pwm.ListChips(sys, logger.Nop())
	require.NoError(t, err)
	require.Len(t, chips, 2)
	assert.Equal(t, "pwmchip0", chips[0].Name())
	assert.Equal(t, 2, chips[0].ChannelCount())
	assert.Equal(t, "pwmchip2", chips[1].Name())
	assert.Equal(t, 4, chips[1].ChannelCount())
}

func TestExportOverMemFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(chipPath, 0o755))
	require.NoError(t, afero.WriteFile(fs, chipPath+"/npwm", []byte("2\n"), 0o444))
	require.NoError(t, afero.WriteFile(fs, chipPath+"/export", nil, 0o200))
	sys := sysfs.New(fs, "/sys")

	chips, err := pwm.ListChips(sys, logger.Nop())
	require.NoError(t, err)
	require.Len(t, chips, 1)
	assert.Equal(t, 2, chips[0].ChannelCount())

	_, err = chips[0].Export(1)
	require.NoError(t, err)

	b, err := afero.ReadFile(fs, chipPath+"/export")
	require.NoError(t, err)
	assert.Equal(t, "1", string(b))
}
