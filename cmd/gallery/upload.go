package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/timmy/gallery/internal/domain"
	"github.com/timmy/gallery/internal/upload"
)

func newUploadCmd(a *app) *cobra.Command {
	var path, title, description string

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload an image and add it to the gallery",
		Long: `Upload a PNG, JPEG or GIF (under 10MB) to the configured blob store,
then register it with a title (2-20 characters) and a description (up to 65 characters).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			blobs, err := a.blobStore()
			if err != nil {
				return err
			}
			session, err := a.newSession(cmd, blobs)
			if err != nil {
				return err
			}
			defer session.Close()
			ctx := session.Context(commandContext(cmd))

			p := session.Upload()
			p.SetTitle(title)
			p.SetDescription(description)

			if path != "" {
				file, err := upload.LoadFile(path)
				if err != nil {
					return err
				}
				p.SetFile(file)
				if _, err := p.UploadFile(ctx); err != nil {
					return describe(err)
				}
			}

			item, err := session.Submit(ctx)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", item.ID, item.URL)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "file", "", "image file to upload")
	cmd.Flags().StringVar(&title, "title", "", "image title")
	cmd.Flags().StringVar(&description, "description", "", "image description")
	return cmd
}

// describe flattens field errors into one readable message.
func describe(err error) error {
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || len(verr.Fields) == 0 {
		return err
	}
	fields := make([]string, 0, len(verr.Fields))
	for f := range verr.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	msg := "invalid input:"
	for _, f := range fields {
		msg += fmt.Sprintf("\n  %s: %s", f, verr.Fields[f].Message)
	}
	return errors.New(msg)
}
