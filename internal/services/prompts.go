package services

import (
	"fmt"
	"strings"

	"mythos/internal/core"
)

// noEmojiSuffix ends every prompt.
const noEmojiSuffix = "IMPORTANT: Do not use any emojis in your response. Use only text and symbols."

// HealthPrompt is the probe sent by Health.
const HealthPrompt = "Respond with 'OK' if you can process this request. Do not use any emojis in your response."

const noContext = "No specific context provided"

// promptBuilder assembles prompts line by line, skipping empty optional lines.
type promptBuilder struct {
	b strings.Builder
}

func (p *promptBuilder) line(s string) *promptBuilder {
	p.b.WriteString(s)
	p.b.WriteString("\n")
	return p
}

// optional writes "label: value" only when value is non-empty.
func (p *promptBuilder) optional(label, value string) *promptBuilder {
	if value != "" {
		p.line(label + ": " + value)
	}
	return p
}

func (p *promptBuilder) blank() *promptBuilder {
	return p.line("")
}

func (p *promptBuilder) String() string {
	p.blank()
	p.b.WriteString(noEmojiSuffix)
	return p.b.String()
}

func plotTwistPrompt(storyContext, genre string) string {
	p := &promptBuilder{}
	p.line("Generate a creative plot twist for a story.").
		optional("Story context", storyContext).
		optional("Genre", genre).
		blank().
		line("Please provide:").
		line("1. A compelling title for the twist").
		line("2. A detailed description of the twist").
		line("3. The category (Character, Plot, Setting, or Theme)").
		line("4. The impact level (Low, Medium, or High)").
		line("5. A short icon representation (use text symbols, not emojis)").
		blank().
		line("Format the response as JSON:").
		line(`{"title": "Twist Title", "description": "Detailed description of the twist...", "category": "Plot", "impact": "Medium", "icon": "~"}`)
	return p.String()
}

func continueStoryPrompt(storyContent, direction string, existing core.StoryContext) string {
	p := &promptBuilder{}
	p.line("Continue this story in a creative and engaging way:").
		blank().
		line("Current story: "+storyContent).
		optional("Direction", direction)
	if ctx := storyContextBlock(existing); ctx != "" {
		p.b.WriteString(ctx)
	}
	p.blank().
		line("Please continue the story with 2-3 paragraphs that:").
		line("- Maintain the established tone and style").
		line("- Add new developments or revelations").
		line("- Keep the reader engaged").
		line("- Flow naturally from the existing content").
		line("- Reference and develop existing characters when appropriate").
		line("- Build upon existing plot elements and twists").
		blank().
		line("Return only the story continuation text, no additional formatting.")
	return p.String()
}

// storyContextBlock renders existing material as bulleted sections. Empty
// lists produce nothing.
func storyContextBlock(existing core.StoryContext) string {
	var b strings.Builder
	if len(existing.Characters) > 0 {
		b.WriteString("\nEXISTING CHARACTERS:\n")
		for _, c := range existing.Characters {
			fmt.Fprintf(&b, "- %s: %s\n", c.Name, orDefault(c.Description, "No description"))
			if c.Traits != "" {
				fmt.Fprintf(&b, "  Traits: %s\n", c.Traits)
			}
			if c.Motivation != "" {
				fmt.Fprintf(&b, "  Motivation: %s\n", c.Motivation)
			}
		}
	}
	if len(existing.Plots) > 0 {
		b.WriteString("\nEXISTING PLOT ELEMENTS:\n")
		for _, pl := range existing.Plots {
			fmt.Fprintf(&b, "- %s: %s\n", pl.Title, orDefault(pl.Acts, "No structure"))
		}
	}
	if len(existing.Twists) > 0 {
		b.WriteString("\nEXISTING PLOT TWISTS:\n")
		for _, tw := range existing.Twists {
			fmt.Fprintf(&b, "- %s: %s\n", tw.Title, tw.Description)
		}
	}
	return b.String()
}

func developCharacterPrompt(name, currentTraits, storyContext string) string {
	p := &promptBuilder{}
	p.line("Develop a character for a story:").
		blank().
		line("Character name: "+name).
		optional("Current traits", currentTraits).
		optional("Story context", storyContext).
		blank().
		line("Please provide:").
		line("1. A detailed character description").
		line("2. Key personality traits").
		line("3. Background story").
		line("4. Motivations and goals").
		blank().
		line("Format as JSON:").
		line(`{"description": "Character description...", "traits": "Key personality traits...", "background": "Character background...", "motivations": "What drives this character..."}`)
	return p.String()
}

func storySuggestionsPrompt(genre, theme string) string {
	p := &promptBuilder{}
	p.line("Generate 3 creative story ideas:").
		optional("Genre", genre).
		optional("Theme", theme).
		blank().
		line("For each idea, provide:").
		line("1. A compelling title").
		line("2. A brief synopsis").
		line("3. Key characters").
		line("4. Main plot points").
		blank().
		line("Format as JSON array:").
		line(`[{"title": "Story Title", "synopsis": "Brief story description...", "characters": ["Character 1", "Character 2"], "plotPoints": ["Point 1", "Point 2", "Point 3"]}]`)
	return p.String()
}

func characterFromStoryPrompt(storyContent, name string) string {
	p := &promptBuilder{}
	p.line("Based on this story content, generate a character that fits naturally into the narrative:").
		blank().
		line("Story: " + storyContent)
	if name != "" {
		p.line("Character name: " + name)
	} else {
		p.line("Generate a name for this character")
	}
	p.blank().
		line("Please provide a character that:").
		line("- Fits the story's tone and genre").
		line("- Has a clear role in the narrative").
		line("- Is well-developed with distinct traits").
		line("- Contributes to the story's progression").
		blank().
		line("Format as JSON:").
		line(`{"name": "Character Name", "role": "Protagonist/Antagonist/Supporting", "age": "Age or age range", "origin": "Where they're from", "motivation": "What drives them", "description": "Physical and personality description", "backstory": "Their background story", "traits": "Key personality traits", "relationships": "How they relate to other characters"}`)
	return p.String()
}

func plotFromStoryPrompt(storyContent, plotType string) string {
	p := &promptBuilder{}
	p.line("Based on this story content, generate a plot structure that enhances the narrative:").
		blank().
		line("Story: " + storyContent).
		line("Plot type: " + plotType).
		blank().
		line("Please provide a plot structure that:").
		line("- Builds upon the existing story elements").
		line("- Creates a compelling narrative arc").
		line("- Includes key turning points").
		line("- Maintains consistency with the story's tone").
		blank().
		line("Format as JSON:").
		line(fmt.Sprintf(`{"title": "Plot Title", "structure_type": %q, "acts": "Detailed breakdown of acts/parts", "branches": "Alternative plot paths or subplots"}`, plotType))
	return p.String()
}

// Writing assistance types.
const (
	AssistDialogue    = "dialogue"
	AssistDescription = "description"
	AssistAction      = "action"
	AssistEmotion     = "emotion"
	AssistGeneral     = "general"
)

func writingAssistancePrompt(prompt, writingContext, assistType string) string {
	var opening, guidance string
	switch assistType {
	case AssistDialogue:
		opening = "Write engaging dialogue for this scenario: "
		guidance = "Make the dialogue natural, character-driven, and advance the story."
	case AssistDescription:
		opening = "Write a vivid description for: "
		guidance = "Make it sensory, atmospheric, and engaging."
	case AssistAction:
		opening = "Write an action scene for: "
		guidance = "Make it dynamic, fast-paced, and cinematic."
	case AssistEmotion:
		opening = "Write about this emotional moment: "
		guidance = "Make it deeply felt and authentic."
	default:
		opening = "Help with writing: "
	}

	p := &promptBuilder{}
	p.line(opening + prompt).
		blank().
		line("Context: " + orDefault(writingContext, noContext))
	if guidance != "" {
		p.blank().line(guidance)
	}
	return p.String()
}

func analyzeStoryPrompt(storyContent, focus string) string {
	p := &promptBuilder{}
	p.line("Analyze this story and provide constructive feedback:").
		blank().
		line(storyContent).
		blank()
	if focus != "" {
		p.line("Focus on: " + focus).blank()
	}
	p.line("Please provide:").
		line("1. Overall assessment").
		line("2. Strengths").
		line("3. Areas for improvement").
		line("4. Specific suggestions").
		line("5. Writing style analysis").
		blank().
		line("Be constructive and encouraging while being honest about areas that need work.")
	return p.String()
}

func writingPromptsPrompt(genre, theme, difficulty string) string {
	request := "Generate 5 creative writing prompts"
	if genre != "" {
		request += " in the " + genre + " genre"
	}
	if theme != "" {
		request += " with the theme of " + theme
	}
	if difficulty != "" {
		request += " at " + difficulty + " difficulty level"
	}

	p := &promptBuilder{}
	p.line(request + ".").
		blank().
		line(`Each prompt should be engaging, specific, and inspiring. Format as a JSON array with "prompt" and "description" fields.`)
	return p.String()
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
