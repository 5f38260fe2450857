package phy_test

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/observe-l/phylink/bitstream"
	"github.com/observe-l/phylink/channel"
	"github.com/observe-l/phylink/fec"
	"github.com/observe-l/phylink/internal/sim"
	"github.com/observe-l/phylink/modem"
)

// TestPolar16_8_BPSKNoiseless runs one polar block through the modem without a channel.
func TestPolar16_8_BPSKNoiseless(t *testing.T) {
	pc, err := fec.NewPolarCodec(16, 8)
	require.NoError(t, err)
	msg := []uint8{1, 0, 1, 1, 0, 0, 1, 0}
	cw, err := pc.Encode(msg)
	require.NoError(t, err)

	sym := modem.Modulate(cw, modem.BPSK)
	llr := modem.DemodulateLLR(sym, modem.BPSK, 0.5)
	for _, m := range []fec.Method{fec.MethodSC, fec.MethodSCL, fec.MethodBP} {
		got, err := pc.Decode(llr, m, fec.DecodeOptions{})
		require.NoError(t, err, m.String())
		assert.Equal(t, msg, got, m.String())
	}
}

// TestPolarAWGN_HighSNRIsClean pushes a 1024-bit polar block through AWGN at 10 dB.
func TestPolarAWGN_HighSNRIsClean(t *testing.T) {
	pc, err := fec.NewPolarCodec(1024, 512)
	require.NoError(t, err)
	rng := rand.New(rand.NewPCG(7, 7))
	msg := make([]uint8, 512)
	for i := range msg {
		msg[i] = uint8(rng.IntN(2))
	}
	cw, err := pc.Encode(msg)
	require.NoError(t, err)

	sym := modem.Modulate(cw, modem.QPSK)
	noisy, nv := channel.AWGN{SNRdB: 10, Src: rand.NewPCG(1, 2)}.Apply(sym)
	llr := modem.DemodulateLLR(noisy, modem.QPSK, nv)
	got, err := pc.Decode(llr, fec.MethodSCL, fec.DecodeOptions{ListSize: 4})
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

// TestTextOverMixedChain sends text over a chain mixing every code family.
func TestTextOverMixedChain(t *testing.T) {
	parse := func(s string) fec.Scheme {
		sc, err := fec.ParseScheme(s)
		require.NoError(t, err)
		return sc
	}
	hops := []sim.Hop{
		{Name: "uplink", Scheme: parse("Polar(256,128)"), Modulation: modem.QPSK, SNRdB: 8, Method: fec.MethodSCL},
		{Name: "relay", Scheme: parse("Repetition(3,1)"), Modulation: modem.BPSK, SNRdB: 10},
		{Name: "crosslink", Scheme: parse("Hamming(7,4)"), Modulation: modem.BPSK, Noiseless: true},
		{Name: "downlink", Scheme: parse("Polar"), Modulation: modem.BPSK, SNRdB: 9, Method: fec.MethodBP},
	}
	link, err := sim.NewLink(hops)
	require.NoError(t, err)

	const text = "polar codes over a four hop link"
	bits := bitstream.FromText(text)
	res, err := link.Transmit(context.Background(), bits, rand.NewPCG(11, 0))
	require.NoError(t, err)
	require.Len(t, res.Hops, len(hops))
	assert.Equal(t, text, bitstream.ToText(res.Received))
	assert.Zero(t, res.BER)
	assert.True(t, res.Passed(0))
}

// TestBlockedHopFails checks that a blocked hop garbles the message and fails the link.
func TestBlockedHopFails(t *testing.T) {
	link, err := sim.NewLink([]sim.Hop{
		{Name: "ok", Scheme: fec.Scheme{Kind: fec.SchemeNone}, Modulation: modem.BPSK, Noiseless: true},
		{Name: "dark", Scheme: fec.Scheme{Kind: fec.SchemeNone}, Modulation: modem.BPSK, SNRdB: sim.BlockedSNR},
	})
	require.NoError(t, err)
	bits := bitstream.FromText("are you there")
	res, err := link.Transmit(context.Background(), bits, rand.NewPCG(5, 5))
	require.NoError(t, err)
	assert.True(t, res.Blocked())
	assert.False(t, res.Passed(1))
	assert.Greater(t, res.BER, 0.3)
}
