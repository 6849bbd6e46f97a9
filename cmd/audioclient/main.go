// Command audioclient streams a WAV file to a running Mina service over
// WebSocket and prints the transcript events it gets back. Useful for
// exercising the throttling and endpointing behavior against real audio.
package main

import (
	"encoding/binary"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

// WAV header is 44 bytes for standard PCM files
const wavHeaderSize = 44

// Stream audio in chunks to simulate real-time capture.
// At 16kHz 16-bit mono = 32000 bytes/second; 100ms chunks = 3200 bytes.
const chunkIntervalMs = 100

type controlMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
}

type serverEvent struct {
	Type      string  `json:"type"`
	EventType string  `json:"eventType"`
	SessionID string  `json:"sessionId"`
	SegmentID string  `json:"segmentId"`
	Text      string  `json:"text"`
	Reason    string  `json:"reason"`
	Error     string  `json:"error"`
	Metrics   any     `json:"metrics"`
	Conf      float64 `json:"confidence"`
}

func main() {
	audioFile := flag.String("audio", "testdata/sample-16khz.wav", "Path to WAV file (16-bit mono PCM)")
	serverURL := flag.String("server", "ws://localhost:8080/v1/streams", "WebSocket endpoint")
	sessionID := flag.String("session", "audioclient-"+time.Now().Format("150405"), "Session ID")
	flag.Parse()

	f, err := os.Open(*audioFile)
	if err != nil {
		log.Fatalf("Failed to open audio file: %v", err)
	}
	defer f.Close()

	header := make([]byte, wavHeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		log.Fatalf("Failed to read WAV header: %v", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		log.Fatal("Not a valid WAV file")
	}

	audioFormat := binary.LittleEndian.Uint16(header[20:22])
	numChannels := binary.LittleEndian.Uint16(header[22:24])
	sampleRate := binary.LittleEndian.Uint32(header[24:28])
	bitsPerSample := binary.LittleEndian.Uint16(header[34:36])

	log.Printf("WAV file: format=%d channels=%d sampleRate=%d bitsPerSample=%d",
		audioFormat, numChannels, sampleRate, bitsPerSample)

	if audioFormat != 1 { // PCM
		log.Fatal("Only PCM format supported")
	}
	if numChannels != 1 {
		log.Fatal("Only mono audio supported")
	}

	// 100ms of audio per chunk at the file's sample rate.
	chunkSize := int(sampleRate) * int(bitsPerSample) / 8 / 10

	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("Connected to %s", *serverURL)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var ev serverEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				log.Printf("Unparseable message: %s", data)
				continue
			}

			switch {
			case ev.Error != "":
				log.Printf("Server error: %s", ev.Error)
			case ev.EventType != "":
				log.Printf("[%s] %s (segment=%s conf=%.2f reason=%s)",
					ev.EventType, ev.Text, ev.SegmentID, ev.Conf, ev.Reason)
			case ev.Type == "session.stopped":
				snap, _ := json.Marshal(ev.Metrics)
				log.Printf("Session stopped, metrics: %s", snap)
				return
			default:
				log.Printf("Server: %s", ev.Type)
			}
		}
	}()

	if err := conn.WriteJSON(controlMessage{Type: "start", SessionID: *sessionID}); err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}
	log.Printf("Streaming audio: sessionId=%s", *sessionID)

	audioChunk := make([]byte, chunkSize)
	var totalBytes int64
	var chunkNum int
	startTime := time.Now()

	for {
		n, err := f.Read(audioChunk)
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("Failed to read audio: %v", err)
		}

		chunkNum++
		totalBytes += int64(n)

		if err := conn.WriteMessage(websocket.BinaryMessage, audioChunk[:n]); err != nil {
			log.Fatalf("Failed to send audio frame: %v", err)
		}

		if chunkNum%10 == 0 {
			log.Printf("Sent chunk %d (%d bytes total)", chunkNum, totalBytes)
		}

		// Simulate real-time capture pacing
		time.Sleep(chunkIntervalMs * time.Millisecond)
	}

	elapsed := time.Since(startTime)
	log.Printf("Finished streaming: %d chunks, %d bytes in %v", chunkNum, totalBytes, elapsed)

	log.Println("Stopping session, waiting for final transcripts...")
	if err := conn.WriteJSON(controlMessage{Type: "stop"}); err != nil {
		log.Fatalf("Failed to stop session: %v", err)
	}

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Println("Timed out waiting for session to stop")
	}
}
