package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"savvybot-backend/internal/capture"
	"savvybot-backend/internal/notify"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <audio>",
	Short: "Turn a voice recording into text",
	Long: `Transcribe a recorded voice message the way the chat microphone does.

With MIC_MODE=record the file is uploaded to the chat backend for transcription.
MIC_MODE=live needs on-device speech recognition, which the terminal doesn't have.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		text, err := transcribeFile(cmd.Context(), a, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

// fileAudio stands in for the microphone: the "recording" is a file on disk.
type fileAudio struct{ path string }

func (f fileAudio) Start(context.Context) (capture.Recording, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	return fileRecording{file: file}, nil
}

type fileRecording struct{ file *os.File }

func (r fileRecording) Stop() (io.Reader, error) {
	defer r.file.Close()
	data, err := io.ReadAll(r.file)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// transcribeFile runs one listen cycle of the configured microphone over path.
// Microphone errors are shown as notifications.
func transcribeFile(ctx context.Context, a *app, path string) (string, error) {
	mic, err := capture.NewMicrophone(a.cfg.MicMode, fileAudio{path: path}, a.gateway, nil, a.log)
	if err != nil {
		return "", err
	}
	return listenOnce(ctx, mic, a.notifier)
}

func listenOnce(ctx context.Context, mic capture.Microphone, notifier notify.Sink) (string, error) {
	var transcript string
	mic.OnTranscript(func(text string) { transcript = text })
	mic.OnError(func(msg string) {
		notifier.Notify(notify.Notification{Title: "Error", Description: msg, Variant: notify.VariantDestructive})
	})

	if err := mic.Toggle(ctx); err != nil {
		return "", err
	}
	if err := mic.Toggle(ctx); err != nil {
		return "", err
	}
	if live, ok := mic.(*capture.LiveTranscriber); ok {
		live.Wait()
	}
	return transcript, nil
}
