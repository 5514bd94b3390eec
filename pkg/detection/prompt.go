package detection

import (
	"fmt"

	"github.com/menta2k/smart-cropper/pkg/types"
)

// SimpleTestPrompt for testing if the model can see images
const SimpleTestPrompt = `What do you see in this image? Describe it briefly.`

const regionFormat = `
Return JSON only:
{
  "regions": [
    {
      "label": "string",
      "confidence": 0.0,
      "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}%s
    }
  ]
}

HARD RULES
- All coordinates are normalized to [0,1] (NOT pixels), origin at the TOP-LEFT corner.
- x,y is the top-left corner of the box; w,h its size. Boxes must stay inside the image.
- Order regions from most to least important.
- Do not guess real identities.
- If nothing qualifies, return {"regions": []}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// AttentionPrompt asks for the areas a viewer looks at first
const AttentionPrompt = `You are an image attention locator.
List the areas of the image a viewer's eye is drawn to first, at most 5.` + "\n" + regionFormat

// ObjectnessPrompt asks for distinct foreground objects
const ObjectnessPrompt = `You are an image subject locator.
List the distinct foreground objects (prefer people, vehicles, animals; else the most salient objects), at most 10.` + "\n" + regionFormat

// FacePrompt asks for faces and how well each was captured
const FacePrompt = `You are a face locator.
List every visible human face. Set "quality" to how well the face is captured (sharp, well lit, frontal = 1.0; blurred, dark, occluded = 0.0).` + "\n" + regionFormat

// RegionPrompt returns the prompt used for mode
func RegionPrompt(mode types.CropType) string {
	switch mode {
	case types.CropAttention:
		return fmt.Sprintf(AttentionPrompt, "")
	case types.CropObjectness:
		return fmt.Sprintf(ObjectnessPrompt, "")
	case types.CropFace:
		return fmt.Sprintf(FacePrompt, `,
      "quality": 0.0`)
	}
	return ""
}
