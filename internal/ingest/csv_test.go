package ingest

import (
	"errors"
	"strings"
	"testing"
	"time"

	rt "resin_tracker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lotTags map[string]bool

func (l lotTags) KindOf(tag string) rt.EventKind {
	if l[tag] {
		return rt.KindLotChange
	}
	return rt.KindCounterSample
}

var testKinds = lotTags{"CIn_OF_Num": true}

func TestDecode_DateTimeColumn(t *testing.T) {
	in := "TagName,Valeur,DateTime\n" +
		"CIn_OF_Num,4711,2025-03-10 06:00:00\n" +
		"CIn1P_T1_ConsoMasse_ISO_Tot,\"1 250,5\",2025-03-10T06:05:00Z\n"

	events, stats, err := NewDecoder(testKinds, nil).Decode(strings.NewReader(in))

	require.NoError(t, err)
	assert.Equal(t, Stats{Rows: 2, Events: 2}, stats)
	require.Len(t, events, 2)
	assert.Equal(t, rt.KindLotChange, events[0].Kind)
	assert.Equal(t, 4711.0, events[0].Value)
	assert.Equal(t, time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC), events[0].Timestamp)
	assert.Equal(t, rt.KindCounterSample, events[1].Kind)
	assert.Equal(t, 1250.5, events[1].Value)
}

func TestDecode_SemicolonDateAndHour(t *testing.T) {
	in := "\ufeffDate_Cible;Heure;TagName;Valeur\n" +
		"10/03/2025;6;CIn1P_T1_ConsoMasse_PO_Tot;12,5\n" +
		"10/03/2025;07:30;CIn1P_T1_ConsoMasse_PO_Tot;15\n" +
		"10/03/2025;;CIn1P_T1_ConsoMasse_PO_Tot;99\n"
	paris := time.FixedZone("CET", 3600)

	events, stats, err := NewDecoder(testKinds, paris).Decode(strings.NewReader(in))

	require.NoError(t, err)
	assert.Equal(t, 3, stats.Rows)
	assert.Equal(t, 1, stats.Skipped)
	require.Len(t, events, 2)
	assert.Equal(t, time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC), events[0].Timestamp)
	assert.Equal(t, time.Date(2025, 3, 10, 6, 30, 0, 0, time.UTC), events[1].Timestamp)
	assert.Equal(t, 12.5, events[0].Value)
}

func TestDecode_UnparsableValueBecomesZero(t *testing.T) {
	in := "TagName,Valeur,DateTime\nA,#ERR,2025-03-10 06:00:00\n"

	events, _, err := NewDecoder(testKinds, nil).Decode(strings.NewReader(in))

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Zero(t, events[0].Value)
}

func TestDecode_SkipsRowsWithoutTag(t *testing.T) {
	in := "TagName,Valeur,DateTime\n,5,2025-03-10 06:00:00\nA,6\n"

	events, stats, err := NewDecoder(testKinds, nil).Decode(strings.NewReader(in))

	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, 2, stats.Skipped)
}

func TestDecode_HeaderErrors(t *testing.T) {
	_, _, err := NewDecoder(testKinds, nil).Decode(strings.NewReader(""))
	assert.True(t, errors.Is(err, ErrNoHeader), "got %v", err)

	_, _, err = NewDecoder(testKinds, nil).Decode(strings.NewReader("TagName,DateTime\n"))
	assert.True(t, errors.Is(err, ErrMissingColumn), "got %v", err)

	_, _, err = NewDecoder(testKinds, nil).Decode(strings.NewReader("TagName,Valeur,Heure\n"))
	assert.True(t, errors.Is(err, ErrMissingColumn), "got %v", err)
}

func TestSniffSeparator(t *testing.T) {
	assert.Equal(t, ';', sniffSeparator([]byte("a;b;c\n1,2;3;4")))
	assert.Equal(t, ',', sniffSeparator([]byte("a,b,c\r\n1;2;3;4;5")))
	assert.Equal(t, ',', sniffSeparator(nil))
}
