package render

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// genaiBackend imagen-* 走 GenerateImages，其他模型走 GenerateContent 取内联图像
type genaiBackend struct {
	client      *genai.Client
	aspectRatio string
}

func (b *genaiBackend) Generate(ctx context.Context, model, prompt string) (*Image, error) {
	if strings.HasPrefix(model, "imagen") {
		return b.generateImages(ctx, model, prompt)
	}
	return b.generateContent(ctx, model, prompt)
}

func (b *genaiBackend) generateImages(ctx context.Context, model, prompt string) (*Image, error) {
	res, err := b.client.Models.GenerateImages(ctx, model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    b.aspectRatio,
		OutputMIMEType: "image/png",
	})
	if err != nil {
		return nil, err
	}
	for _, gi := range res.GeneratedImages {
		if gi == nil || gi.Image == nil || len(gi.Image.ImageBytes) == 0 {
			continue
		}
		return &Image{Data: gi.Image.ImageBytes, MIMEType: gi.Image.MIMEType}, nil
	}
	return nil, errors.New("no image returned by model")
}

func (b *genaiBackend) generateContent(ctx context.Context, model, prompt string) (*Image, error) {
	contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt)}, genai.RoleUser)}
	res, err := b.client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return nil, err
	}
	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return nil, errors.New("no image returned by model")
	}

	var textOut strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return &Image{Data: part.InlineData.Data, MIMEType: part.InlineData.MIMEType}, nil
		}
		textOut.WriteString(part.Text)
	}
	if s := strings.TrimSpace(textOut.String()); s != "" {
		if len(s) > 512 {
			s = s[:512] + "..."
		}
		return nil, fmt.Errorf("no image returned by model: %s", s)
	}
	return nil, errors.New("no image returned by model")
}
