package analyzer

import (
	"fmt"
	"strings"

	"github.com/mindsignal/triage/internal/evidence"
)

// One fixed taxonomy per modality, embedded directly in the instruction,
// keeps the model's implicit classifier stable across calls. The explicit
// typo-correction step guards against over-flagging garbled input.

const textPromptTemplate = `You are a psychiatric and mental-health specialist. Your task is to analyze a message for signs of abnormal psychology and emotional disturbance.

Analyze this message: "%s"
%s
Critical instruction:
- Watch out for typos, slang, and fat-finger keyboard errors.
- If the message looks meaningless, first try to guess the intended wording (e.g. "kil lme" was probably meant as "kill me", "gud mornin" as "good morning").
- If it is only a typo or everyday slang, classify it GREEN. Do not label it disorganized speech unless it is genuinely bizarre.

Assessment criteria (abnormal psychology spectra):
1. RED (danger / severe abnormality):
   - Harm to self: suicidal ideation, self-injury planning, hopeless fatalism.
   - Harm to others (antisocial/psychopathy): threats, plans to kill/rape/torture, extreme cruelty, lack of empathy.
   - Severe psychosis: command hallucinations (voices telling to hurt), bizarre delusions.
   - Severe paraphilias: admission of illegal or non-consensual sexual acts.

2. YELLOW (clinical attention needed):
   - Mood disorders: depression, mania, bipolar patterns.
   - Anxiety/OCD: panic, obsessive thoughts, phobias affecting function.
   - Personality disorders (cluster A/B): extreme paranoia, narcissism with rage, borderline instability.
   - Sexual deviance: voyeurism mentions, stalking behavior, socially inappropriate sexual expression.
   - Heartbreak/grief: severe emotional distress but not yet dangerous.
   - Observation: anything deviating significantly from social norms.
   - Video context: sad or disturbing content shared.

3. GREEN (normal):
   - Ordinary human emotion.
   - Everyday complaints, casual profanity, jokes.
   - Typos, garbled slang, or short messages that are probably just mistyped.
   - Sharing love songs, fun songs, or ordinary videos.

Respond with a single JSON object only:
{
    "level": "GREEN/YELLOW/RED",
    "score": 1-10 (1=normal, 10=crisis),
    "reason": "symptom analysis (for a typo, state what it was probably meant to say)",
    "keywords": ["terms detected"],
    "content_type": "Song/Vlog/News/Unknown",
    "media_context": "short summary of any attached media, if present",
    "recommendation": "suggested next step"
}`

const linkPromptTemplate = `[Media the user is currently watching or listening to]
Type: YouTube Video
Title: %s
Content/lyrics (partial): "%s"

Instruction: analyze how this song or clip reflects the sharer's emotional state or mental-health risk.
- Is it a sad / heartbreak / wanting-to-die song?
- Is it negative or depressing news footage?
- Or just an ordinary love song, comedy, or neutral clip?`

const imagePrompt = `You are a forensic psychiatrist.

Mission: analyze this image for signs of danger to life and mental health.

Things to detect (critical triggers, abnormal psychology):
1. Risk to self (self-harm/suicide):
   - Cuts, blood, nooses, overdose, rooftop edges.
2. Risk to others (violence/antisocial):
   - Weapons (guns, knives) in threatening context.
   - Cruelty to animals (gore/torture).
   - Vandalism, arson.
3. Sexual deviance and paraphilias (DSM-5 categories):
   - Voyeurism (spying/upskirt), exhibitionism.
   - Pedophilic interest context, sexual sadism/masochism visuals.
4. Bizarre/disorganized behavior (psychosis/schizophrenia):
   - Filth and hoarding (extreme squalor).
   - Bizarre rituals, fecal matter, dead animals.
5. Severe distress:
   - Funeral selfies (inappropriate affect), extreme crying.

Scoring criteria (1-10):
- RED (8-10): clear evidence of harm to self, harm to others, animal cruelty, sexual deviance or harassment. Immediate alert.
- YELLOW (5-7): bizarre or eccentric behavior, hoarding, depressive atmosphere, obsessive visuals.
- GREEN (1-4): normal human behavior, hobbies, food, landscapes.

Respond with a single JSON object only:
{
    "level": "GREEN/YELLOW/RED",
    "score": 1-10,
    "reason": "describe what in the image constitutes a risk",
    "keywords": ["things detected, e.g. knife, blood, wounds"],
    "recommendation": "initial suggested action"
}`

func composeTextPrompt(message string, bundle evidence.Bundle) string {
	return fmt.Sprintf(textPromptTemplate, message, formatEvidence(bundle))
}

func composeLinkPrompt(title, excerpt string) string {
	return fmt.Sprintf(linkPromptTemplate, title, excerpt)
}

// formatEvidence renders the gathered bundle as context lines appended below
// the message. An empty bundle renders nothing.
func formatEvidence(bundle evidence.Bundle) string {
	if bundle.Empty() {
		return ""
	}
	var sb strings.Builder
	for _, url := range bundle.URLs {
		fmt.Fprintf(&sb, "\n[YouTube Video Title]: %s", bundle.Titles[url])
		if excerpt, ok := bundle.Transcripts[url]; ok {
			fmt.Fprintf(&sb, "\n[YouTube Transcript Summary]: %s...", excerpt)
		}
	}
	sb.WriteString("\n")
	return sb.String()
}
