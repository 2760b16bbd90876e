package main

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestPcap builds a capture with UDP datagrams to dstPort.
func writeTestPcap(t *testing.T, dstPort uint16, payloads [][]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))

	for i, payload := range payloads {
		eth := &layers.Ethernet{
			SrcMAC:       net.HardwareAddr{1, 2, 3, 4, 5, 6},
			DstMAC:       net.HardwareAddr{6, 5, 4, 3, 2, 1},
			EthernetType: layers.EthernetTypeIPv4,
		}
		ip := &layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    net.IPv4(10, 0, 0, 1),
			DstIP:    net.IPv4(10, 0, 0, 2),
		}
		udp := &layers.UDP{
			SrcPort: layers.UDPPort(30000 + i),
			DstPort: layers.UDPPort(dstPort),
		}
		require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

		buf := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
		require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp,
			gopacket.Payload(payload)))

		ci := gopacket.CaptureInfo{
			Timestamp:     time.Now(),
			CaptureLength: len(buf.Bytes()),
			Length:        len(buf.Bytes()),
		}
		require.NoError(t, w.WritePacket(ci, buf.Bytes()))
	}
	return path
}

func TestLoadPayloadsFiltersByPort(t *testing.T) {
	path := writeTestPcap(t, 9000, [][]byte{
		[]byte("Username: "),
		[]byte{0xA5, 0x0A, 0x1B},
	})

	payloads, err := loadPayloads(path, 9000)
	require.NoError(t, err)
	require.Len(t, payloads, 2)
	assert.Equal(t, []byte("Username: "), payloads[0])
	assert.Equal(t, []byte{0xA5, 0x0A, 0x1B}, payloads[1])

	// Nothing captured on an unrelated port.
	payloads, err = loadPayloads(path, 1234)
	require.NoError(t, err)
	assert.Empty(t, payloads)
}

func TestReplayWritesPayloadsInOrder(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	go replay(server, [][]byte{[]byte("abc"), []byte("def")}, 0, false)

	buf := make([]byte, 3)
	var got []byte
	for len(got) < 6 {
		n, err := client.Read(buf)
		require.NoError(t, err)
		got = append(got, buf[:n]...)
	}
	assert.Equal(t, "abcdef", string(got))
}
