package google

import (
	"context"
	"fmt"
	"io"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"

	"ai-orchestrator-be/pkg/stt"
)

// GoogleProvider streams audio to the Google Cloud Speech API. It relies on
// Application Default Credentials for authentication.
type GoogleProvider struct {
	client *speech.Client
}

var _ stt.Adapter = &GoogleProvider{}

func NewGoogleProvider(ctx context.Context) (*GoogleProvider, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	return &GoogleProvider{client: client}, nil
}

func (p *GoogleProvider) Close() error {
	return p.client.Close()
}

func (p *GoogleProvider) Stream(ctx context.Context, audio <-chan []byte) <-chan stt.Result {
	out := make(chan stt.Result)

	go func() {
		defer close(out)

		recognizeStream, err := p.client.StreamingRecognize(ctx)
		if err != nil {
			out <- stt.Result{Err: fmt.Errorf("could not start streaming recognize: %w", err)}
			return
		}

		// Send initial configuration
		if err := recognizeStream.Send(&speechpb.StreamingRecognizeRequest{
			StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
				StreamingConfig: &speechpb.StreamingRecognitionConfig{
					Config: &speechpb.RecognitionConfig{
						Encoding:        speechpb.RecognitionConfig_LINEAR16,
						SampleRateHertz: 16000,
						LanguageCode:    "en-US",
					},
					InterimResults: true,
				},
			},
		}); err != nil {
			out <- stt.Result{Err: fmt.Errorf("could not send streaming config: %w", err)}
			return
		}

		// Pump audio chunks into the recognizer until the channel closes.
		go func() {
			for {
				select {
				case chunk, ok := <-audio:
					if !ok {
						if err := recognizeStream.CloseSend(); err != nil {
							// Recv below will surface the terminal error.
							_ = err
						}
						return
					}
					if len(chunk) == 0 {
						continue
					}
					if err := recognizeStream.Send(&speechpb.StreamingRecognizeRequest{
						StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
							AudioContent: chunk,
						},
					}); err != nil {
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()

		for {
			resp, err := recognizeStream.Recv()
			if err == io.EOF {
				return
			}
			if err != nil {
				if ctx.Err() == nil {
					out <- stt.Result{Err: fmt.Errorf("cannot stream results: %w", err)}
				}
				return
			}
			if len(resp.Results) == 0 {
				continue
			}
			result := resp.Results[0]
			if len(result.Alternatives) == 0 {
				continue
			}
			select {
			case out <- stt.Result{
				Transcript: result.Alternatives[0].Transcript,
				IsFinal:    result.IsFinal,
			}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
