package catalog

import (
	"fmt"

	"github.com/playperu/vrquest/internal/quest"
)

// ContentDoc is the flat, kind-tagged form of a POI payload used in catalog
// files and in the content column of the SQL catalog. Only the fields of the
// POI's kind are set.
type ContentDoc struct {
	// question
	Prompt        string   `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	Options       []string `json:"options,omitempty" yaml:"options,omitempty"`
	CorrectAnswer string   `json:"correctAnswer,omitempty" yaml:"correct_answer,omitempty"`
	Explanation   string   `json:"explanation,omitempty" yaml:"explanation,omitempty"`

	// multimedia
	Media  string   `json:"media,omitempty" yaml:"media,omitempty"`
	URL    string   `json:"url,omitempty" yaml:"url,omitempty"`
	Images []string `json:"images,omitempty" yaml:"images,omitempty"`

	// review
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	// product
	Name        string   `json:"name,omitempty" yaml:"name,omitempty"`
	Benefits    []string `json:"benefits,omitempty" yaml:"benefits,omitempty"`
	ContactInfo string   `json:"contactInfo,omitempty" yaml:"contact_info,omitempty"`

	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Decode builds the typed payload for kind.
func (d ContentDoc) Decode(kind quest.Kind) (quest.Content, error) {
	switch kind {
	case quest.KindQuestion:
		return quest.QuestionContent{
			Prompt:        d.Prompt,
			Options:       d.Options,
			CorrectAnswer: d.CorrectAnswer,
			Explanation:   d.Explanation,
		}, nil
	case quest.KindMultimedia:
		media := quest.MediaType(d.Media)
		switch media {
		case "":
			media = quest.MediaVideo
		case quest.MediaVideo, quest.MediaImageGallery, quest.MediaAudio:
		default:
			return nil, fmt.Errorf("%w: unknown media type %q", quest.ErrInvalidContent, d.Media)
		}
		return quest.MultimediaContent{
			Media:       media,
			URL:         d.URL,
			Images:      d.Images,
			Description: d.Description,
		}, nil
	case quest.KindReview:
		return quest.ReviewContent{Message: d.Message, URL: d.URL}, nil
	case quest.KindProduct:
		return quest.ProductContent{
			Name:        d.Name,
			Description: d.Description,
			Benefits:    d.Benefits,
			ContactInfo: d.ContactInfo,
		}, nil
	}
	return nil, fmt.Errorf("%w: unknown kind %q", quest.ErrInvalidContent, kind)
}

// EncodeContent flattens a typed payload.
func EncodeContent(c quest.Content) ContentDoc {
	switch c := c.(type) {
	case quest.QuestionContent:
		return ContentDoc{Prompt: c.Prompt, Options: c.Options, CorrectAnswer: c.CorrectAnswer, Explanation: c.Explanation}
	case quest.MultimediaContent:
		return ContentDoc{Media: string(c.Media), URL: c.URL, Images: c.Images, Description: c.Description}
	case quest.ReviewContent:
		return ContentDoc{Message: c.Message, URL: c.URL}
	case quest.ProductContent:
		return ContentDoc{Name: c.Name, Description: c.Description, Benefits: c.Benefits, ContactInfo: c.ContactInfo}
	}
	return ContentDoc{}
}
