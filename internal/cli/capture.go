package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"camvault/internal/capture"
	"camvault/internal/dto"
	"camvault/internal/frame"

	"github.com/spf13/cobra"
)

func newCaptureCommand(o *options) *cobra.Command {
	var after int

	cmd := &cobra.Command{
		Use:   "capture <camera-id>",
		Short: "Grab a frame from a camera and upload it",
		Long: `Grab one frame from the camera's URL on this machine and upload it to the server.
With --after the capture fires when the countdown ends; Ctrl-C during the countdown
cancels it and nothing is uploaded.`,
		Example: `  camctl capture 3
  camctl capture 3 --after 5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			api := o.client()
			cam, err := api.GetCamera(ctx, args[0])
			if err != nil {
				return err
			}

			grabber := frame.NewGrabber(o.v.GetDuration(keyTimeout), 0)
			capturer := capture.CapturerFunc(func(ctx context.Context, target capture.Target) (*dto.IngestResult, error) {
				f, err := grabber.Grab(ctx, target.URL)
				if err != nil {
					return nil, err
				}
				return api.IngestPhoto(ctx, dto.IngestRequest{
					CameraName:  target.Name,
					CameraURL:   target.URL,
					Image:       f.Data,
					ContentType: f.ContentType,
				})
			})

			errOut := cmd.ErrOrStderr()
			orch := capture.New(capturer, capture.WithObserver(func(ev capture.Event) {
				if ev.State == capture.Arming && (ev.Type == capture.EventState || ev.Type == capture.EventTick) {
					fmt.Fprintf(errOut, "Capturing in %d...\n", ev.Remaining)
				}
			}))
			defer orch.Close()

			target := capture.Target{Name: cam.Name, URL: cam.URL}
			var res *dto.IngestResult
			if cmd.Flags().Changed("after") {
				outcomes, err := orch.CaptureAfter(ctx, target, after)
				if err != nil {
					return err
				}
				outcome := <-outcomes
				res, err = outcome.Result, outcome.Err
				if err != nil {
					return captureFailed(errOut, err)
				}
			} else {
				res, err = orch.CaptureNow(ctx, target)
				if err != nil {
					return captureFailed(errOut, err)
				}
			}

			return printCaptured(cmd.OutOrStdout(), o.jsonOutput, res)
		},
	}

	cmd.Flags().IntVar(&after, "after", 0, "countdown in seconds before capturing (at least 1)")
	return cmd
}

func captureFailed(errOut io.Writer, err error) error {
	if errors.Is(err, capture.ErrCancelled) {
		fmt.Fprintln(errOut, "Capture cancelled, nothing was uploaded")
	}
	return err
}
