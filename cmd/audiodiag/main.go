package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/liuscraft/softmix/internal/assets"
	"github.com/liuscraft/softmix/internal/audio"
	"github.com/liuscraft/softmix/internal/mixer"
)

func main() {
	testOutput := flag.Bool("test-output", false, "Play a test tone through the mixer on the selected device")
	deviceName := flag.String("device", "", "Output device name (partial match) for -test-output")
	toneDuration := flag.Int("duration", 3, "Duration of the test tone in seconds")
	flag.Parse()

	fmt.Println("=== PortAudio Output Device Diagnostics ===")
	fmt.Println()

	if *testOutput {
		runOutputTest(*deviceName, *toneDuration)
		return
	}

	if err := portaudio.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize PortAudio: %v\n", err)
		os.Exit(1)
	}
	defer portaudio.Terminate()

	hostAPIs, err := portaudio.HostApis()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get host APIs: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Found %d Host API(s):\n", len(hostAPIs))
	for i, api := range hostAPIs {
		fmt.Printf("  [%d] %s (devices: %d)\n", i, api.Name, len(api.Devices))
	}
	fmt.Println()

	defaultOutput, err := portaudio.DefaultOutputDevice()
	if err != nil {
		fmt.Printf("Default Output Device: (error: %v)\n", err)
	} else {
		fmt.Printf("Default Output Device: %s\n", defaultOutput.Name)
	}
	fmt.Println()

	devices, err := portaudio.Devices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get devices: %v\n", err)
		os.Exit(1)
	}

	outputs := 0
	for _, dev := range devices {
		if dev.MaxOutputChannels > 0 {
			outputs++
		}
	}
	fmt.Printf("=== Output Devices (%d of %d) ===\n\n", outputs, len(devices))

	bufferMs := float64(mixer.DefaultConfig().BufferFrames()) * 1000 / mixer.SampleRate
	for i, dev := range devices {
		if dev.MaxOutputChannels == 0 {
			continue
		}
		isDefault := ""
		if defaultOutput != nil && dev.Name == defaultOutput.Name {
			isDefault = " [DEFAULT OUTPUT]"
		}
		btMarker := ""
		if isBluetooth(dev.Name) {
			btMarker = " 🎧 (Bluetooth?)"
		}

		fmt.Printf("[%d] %s%s%s\n", i, dev.Name, isDefault, btMarker)
		fmt.Printf("    Max Output Channels: %d\n", dev.MaxOutputChannels)
		fmt.Printf("    Default Sample Rate: %.0f Hz\n", dev.DefaultSampleRate)
		fmt.Printf("    Output Latency: Low=%.1fms, High=%.1fms\n",
			dev.DefaultLowOutputLatency.Seconds()*1000,
			dev.DefaultHighOutputLatency.Seconds()*1000)

		if dev.MaxOutputChannels < mixer.Channels {
			fmt.Printf("    ⚠️  Device has fewer than %d channels, the mix is stereo\n", mixer.Channels)
		}
		if dev.DefaultSampleRate != mixer.SampleRate {
			fmt.Printf("    ⚠️  Sample rate is %.0f Hz, not %d Hz; the host API has to convert\n", dev.DefaultSampleRate, mixer.SampleRate)
		}
		if lat := dev.DefaultLowOutputLatency.Seconds() * 1000; lat > bufferMs*float64(mixer.DefaultConfig().QueueDepth) {
			fmt.Printf("    ⚠️  Low latency (%.1fms) exceeds the mixer queue (%.1fms), consider a larger queue_depth\n",
				lat, bufferMs*float64(mixer.DefaultConfig().QueueDepth))
		}
		fmt.Println()
	}

	if defaultOutput != nil {
		fmt.Println("=== Recommended Config for Default Output Device ===")
		fmt.Println()

		highLatency := defaultOutput.DefaultLowOutputLatency.Seconds()*1000 > 50 || isBluetooth(defaultOutput.Name)
		latencyMs := int(defaultOutput.DefaultLowOutputLatency.Seconds() * 1000)
		if highLatency {
			latencyMs = int(defaultOutput.DefaultHighOutputLatency.Seconds() * 1000)
		}

		fmt.Println("Add this to your config/mixer.json:")
		fmt.Println()
		fmt.Println("\"output\": {")
		fmt.Println("    \"backend\": \"portaudio\",")
		fmt.Printf("    \"device\": %q,\n", defaultOutput.Name)
		fmt.Printf("    \"device_latency_ms\": %d,\n", latencyMs)
		fmt.Printf("    \"high_latency\": %v\n", highLatency)
		fmt.Println("}")
		fmt.Println()
	}
}

func isBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, hint := range []string{"bluetooth", "airpods", "buds", "wireless", "bt", "headset"} {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

func runOutputTest(deviceName string, durationSec int) {
	fmt.Println("=== Output Test ===")
	fmt.Println("This test plays a 440Hz tone through the mixer and reports underruns.")
	fmt.Println()

	cfg := mixer.DefaultConfig()
	voice, err := audio.NewPortAudioVoice(audio.PortAudioConfig{
		DeviceName:      deviceName,
		FramesPerBuffer: cfg.BufferFrames(),
	})
	if err != nil {
		fmt.Printf("❌ Failed to open output stream: %v\n", err)
		return
	}

	m, err := mixer.New(voice, cfg)
	if err != nil {
		voice.Close()
		fmt.Printf("❌ Failed to create mixer: %v\n", err)
		return
	}
	defer m.Close()

	tone, err := m.Register("tone", assets.SineWave(440, float64(durationSec), 0.3))
	if err != nil {
		fmt.Printf("❌ Failed to register test tone: %v\n", err)
		return
	}

	if err := m.Start(context.Background()); err != nil {
		fmt.Printf("❌ Failed to start mixer: %v\n", err)
		return
	}
	fmt.Println("✅ Output stream started successfully")

	m.Play(tone, 1, false)
	deadline := time.Now().Add(time.Duration(durationSec)*time.Second + 500*time.Millisecond)
	for time.Now().Before(deadline) && m.IsPlaying(tone) {
		time.Sleep(100 * time.Millisecond)
	}

	stats := voice.Stats()
	mixStats := m.Stats()

	fmt.Println()
	fmt.Println("=== Test Results ===")
	fmt.Printf("Buffers submitted: %d\n", mixStats.Submitted)
	fmt.Printf("Buffers played:    %d\n", stats.Played)
	fmt.Printf("Underruns:         %d\n", stats.Underruns)

	if err := m.Err(); err != nil {
		fmt.Printf("❌ Delivery failed: %v\n", err)
		return
	}
	if stats.Underruns > 0 {
		fmt.Println()
		fmt.Println("⚠️  DIAGNOSIS: The device drained the queue faster than the mixer filled it.")
		fmt.Println("   Try one of these solutions:")
		fmt.Println("   1. Increase mixer.queue_depth in config")
		fmt.Println("   2. Set output.high_latency to true")
		fmt.Println("   3. Use a wired output device")
	} else {
		fmt.Println()
		fmt.Println("✅ Output appears to be working correctly!")
	}
}
