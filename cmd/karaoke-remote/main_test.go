package main

import (
	"testing"

	"github.com/dipak140/oboe-music-player/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		args []string
		want remote.Command
	}{
		{[]string{"play"}, remote.Command{Type: remote.CmdPlay}},
		{[]string{"state"}, remote.Command{Type: remote.CmdState}},
		{[]string{"seek", "1500"}, remote.Command{Type: remote.CmdSeek, PositionMs: 1500}},
		{[]string{"volume", "music", "0.7"}, remote.Command{Type: remote.CmdVolume, Target: remote.TargetMusic, Value: 0.7}},
		{[]string{"tracks"}, remote.Command{Type: remote.CmdState}},
		{[]string{"select", "2"}, remote.SelectCommand(1)},
	}

	for _, tt := range tests {
		got, err := parseCommand(tt.args)
		require.NoError(t, err, "%v", tt.args)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseCommandErrors(t *testing.T) {
	for _, args := range [][]string{
		{"dance"},
		{"seek"},
		{"seek", "soon"},
		{"volume", "music"},
		{"volume", "music", "loud"},
		{"select"},
		{"select", "0"},
		{"select", "two"},
	} {
		_, err := parseCommand(args)
		assert.Error(t, err, "%v", args)
	}
}
