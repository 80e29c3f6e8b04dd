package extract

import (
	"context"
	"errors"
	"testing"
)

func TestWhisperTranscriberParsesTimedLines(t *testing.T) {
	transcriber := NewWhisperTranscriber("/usr/local/bin/whisper-cli")
	transcriber.run = func(_ context.Context, argv []string) (string, error) {
		if argv[0] != "/usr/local/bin/whisper-cli" || argv[1] != "-f" || argv[2] != "/tmp/audio.wav" {
			t.Fatalf("argv = %v", argv)
		}
		return "[00:00:00.000 --> 00:00:02.480]  三个方法教你涨粉\n" +
			"[00:00:02.480 --> 00:00:05.120]  第一个方法是选题\n" +
			"[00:00:05.120 --> 00:00:06.000]  \n", nil
	}

	spans, err := transcriber.Transcribe(context.Background(), "/tmp/audio.wav")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(spans) != 2 {
		t.Fatalf("spans = %v", spans)
	}
	if spans[0].Text != "三个方法教你涨粉" || spans[0].Start != 0 || spans[0].End != 2.48 {
		t.Errorf("span[0] = %+v", spans[0])
	}
	if spans[1].Start != 2.48 || spans[1].End != 5.12 {
		t.Errorf("span[1] = %+v", spans[1])
	}
}

func TestWhisperTranscriberFallsBackToPlainOutput(t *testing.T) {
	transcriber := NewWhisperTranscriber("/usr/local/bin/whisper-cli")
	transcriber.run = func(_ context.Context, _ []string) (string, error) {
		return "一段没有时间戳的识别结果\n", nil
	}

	spans, err := transcriber.Transcribe(context.Background(), "/tmp/audio.wav")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(spans) != 1 || spans[0].Timed() {
		t.Fatalf("spans = %+v, want one untimed span", spans)
	}
	if spans[0].Text != "一段没有时间戳的识别结果" {
		t.Errorf("text = %q", spans[0].Text)
	}
}

func TestWhisperTranscriberPropagatesRunError(t *testing.T) {
	transcriber := NewWhisperTranscriber("/usr/local/bin/whisper-cli")
	transcriber.run = func(_ context.Context, _ []string) (string, error) {
		return "", errors.New("model file not found")
	}

	if _, err := transcriber.Transcribe(context.Background(), "/tmp/audio.wav"); err == nil {
		t.Fatal("runner failure must surface as an error")
	}
}
