// Command pcap-replay serves DVL byte streams captured in pcap files over
// TCP, so the daemon can be pointed at recorded traffic with
// -device tcp://localhost:9999.
//
// Usage:
//
//	go run ./cmd/tools/pcap-replay -pcap capture.pcap -port 9000 -listen :9999
//
// Payloads of TCP or UDP packets on the capture port are concatenated in
// capture order and written to every accepted connection, paced by
// -interval.
package main

import (
	"flag"
	"io"
	"log"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

func main() {
	pcapFile := flag.String("pcap", "", "Path to pcap file (required)")
	port := flag.Int("port", 9000, "Device port in the capture; payloads to/from it are replayed")
	listen := flag.String("listen", ":9999", "Listen address")
	interval := flag.Duration("interval", 100*time.Millisecond, "Delay between replayed payloads")
	loop := flag.Bool("loop", false, "Loop playback when reaching end")
	flag.Parse()

	if *pcapFile == "" {
		log.Fatal("Error: -pcap flag is required")
	}

	payloads, err := loadPayloads(*pcapFile, uint16(*port))
	if err != nil {
		log.Fatalf("Failed to load pcap: %v", err)
	}
	if len(payloads) == 0 {
		log.Fatalf("No payloads on port %d in %s", *port, *pcapFile)
	}
	log.Printf("Loaded %d payloads from %s", len(payloads), *pcapFile)

	ln, err := net.Listen("tcp", *listen)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", *listen, err)
	}
	log.Printf("Replay server ready on %s, point the daemon at tcp://%s", *listen, ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Fatalf("Accept failed: %v", err)
		}
		go replay(conn, payloads, *interval, *loop)
	}
}

// loadPayloads extracts TCP/UDP payloads involving the given port, in
// capture order.
func loadPayloads(path string, port uint16) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := pcapgo.NewReader(f)
	if err != nil {
		return nil, err
	}

	var payloads [][]byte
	source := gopacket.NewPacketSource(r, r.LinkType())
	for packet := range source.Packets() {
		var payload []byte
		switch {
		case packet.Layer(layers.LayerTypeUDP) != nil:
			udp := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
			if uint16(udp.SrcPort) != port && uint16(udp.DstPort) != port {
				continue
			}
			payload = udp.Payload
		case packet.Layer(layers.LayerTypeTCP) != nil:
			tcp := packet.Layer(layers.LayerTypeTCP).(*layers.TCP)
			if uint16(tcp.SrcPort) != port && uint16(tcp.DstPort) != port {
				continue
			}
			payload = tcp.Payload
		default:
			continue
		}
		if len(payload) == 0 {
			continue
		}
		payloads = append(payloads, append([]byte(nil), payload...))
	}
	return payloads, nil
}

func replay(conn net.Conn, payloads [][]byte, interval time.Duration, loop bool) {
	defer conn.Close()
	log.Printf("Client connected: %s", conn.RemoteAddr())

	// Drain and ignore anything the client writes; the recorded stream
	// already contains the device's side of the exchange.
	go io.Copy(io.Discard, conn)

	for {
		for _, p := range payloads {
			if _, err := conn.Write(p); err != nil {
				log.Printf("Client %s disconnected: %v", conn.RemoteAddr(), err)
				return
			}
			time.Sleep(interval)
		}
		if !loop {
			break
		}
	}
	log.Printf("Replay to %s complete", conn.RemoteAddr())
}
