// Package conversational produces canned answers for non-informational
// intents so greetings and small talk never pay for a retrieval round-trip.
package conversational

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/answerdesk/answerdesk/pkg/contracts"
	"github.com/answerdesk/answerdesk/pkg/models"
)

var greetingResponses = []string{
	"Hello! Welcome to Githaf Consulting. How can I help you today?",
	"Hi there! I'm here to answer questions about Githaf Consulting's services. What would you like to know?",
	"Hello! Feel free to ask me anything about Githaf Consulting.",
}

var farewellResponses = []string{
	"Goodbye! Feel free to come back if you have more questions.",
	"Take care! I'm here whenever you need information about Githaf Consulting.",
	"Bye! Have a great day.",
}

var gratitudeResponses = []string{
	"You're welcome! Is there anything else I can help you with?",
	"Happy to help! Let me know if you have more questions.",
	"Anytime! Feel free to ask if anything else comes up.",
}

const helpResponse = "I can answer questions about Githaf Consulting: our services, " +
	"pricing, contact details, office locations, and how we work with clients. " +
	"Just ask in your own words, for example \"What services do you offer?\" or " +
	"\"How do I get in touch?\""

const outOfScopeResponse = "I'm focused on questions about Githaf Consulting and its " +
	"services, so I can't help with that. Is there anything about our consulting " +
	"work I can answer?"

var chitChatResponses = map[string][]string{
	"how_are_you": {
		"I'm doing well, thank you! How can I help you with Githaf Consulting today?",
		"All good here! What would you like to know about our services?",
	},
	"name": {
		"I'm the Githaf Consulting assistant. I answer questions about our services, pricing, and contact details.",
		"I'm an assistant for Githaf Consulting. Ask me anything about what we do!",
	},
	"bot": {
		"Yes, I'm an automated assistant for Githaf Consulting. I'm here to answer your questions about our services.",
		"I'm a virtual assistant, here to help with anything related to Githaf Consulting.",
	},
	"default": {
		"I'm best at answering questions about Githaf Consulting. What would you like to know?",
		"Happy to chat! Is there something about Githaf Consulting I can help with?",
	},
}

// clarificationGroups maps a clarification category to its trigger keywords.
// Checked in priority order; the first group with a matching keyword wins.
var clarificationGroups = []struct {
	category string
	keywords []string
}{
	{"email", []string{"email"}},
	{"pricing", []string{"pricing", "price", "cost", "payment", "fee"}},
	{"contact", []string{"contact", "phone", "address", "location"}},
	{"services", []string{"services", "service"}},
	{"hours", []string{"hours", "schedule", "availability"}},
}

var clarificationResponses = map[string][]string{
	"email": {
		"Are you looking for our email address? You can ask \"What is your email address?\" and I'll share it.",
		"If you'd like to email us, just ask for our contact email and I'll provide it.",
	},
	"pricing": {
		"Could you tell me more about what pricing you're interested in? For example, a specific service or engagement type?",
		"Happy to help with pricing. Which of our services are you asking about?",
	},
	"contact": {
		"Would you like our phone number, email, or office address? Just let me know which.",
		"I can share our contact details. Are you after a phone number, email, or location?",
	},
	"services": {
		"We offer a range of consulting services. Would you like an overview, or details on a specific area?",
		"Could you say a bit more about which service you're interested in?",
	},
	"hours": {
		"Are you asking about our availability or office hours? I can help with either.",
		"Could you clarify whether you mean office hours or consultant availability?",
	},
	"default": {
		"Could you give me a bit more detail about what you're looking for?",
		"I want to make sure I answer the right question. Could you rephrase or add some detail?",
	},
}

// affirmations are short context-dependent replies that only make sense
// against the previous conversation turn.
var affirmations = map[string]bool{
	"yes": true, "okay": true, "ok": true, "sure": true,
	"yep": true, "yeah": true, "yup": true,
}

const contextPrompt = `The user replied "%s" to the previous conversation below.
Respond helpfully and briefly, continuing the thread naturally.

Conversation:
%s

Reply:`

// Responder selects templated answers for conversational intents. The random
// source is injected so tests can pin template selection; access to it is
// serialized because rand.Rand is not safe for concurrent use.
type Responder struct {
	llm    contracts.CompletionDriver
	logger zerolog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// New builds a Responder. llm is used only for context-aware affirmation
// replies and may be nil.
func New(llm contracts.CompletionDriver, rng *rand.Rand, logger zerolog.Logger) *Responder {
	return &Responder{
		llm:    llm,
		rng:    rng,
		logger: logger.With().Str("component", "conversational").Logger(),
	}
}

// Respond produces the canned answer for a non-retrieval intent. history is
// optional; it only influences short affirmation replies. The returned result
// always has conversational=true and no sources.
func (r *Responder) Respond(ctx context.Context, in models.Intent, query string, history []models.ChatMessage) models.AnswerResult {
	lower := strings.ToLower(strings.TrimSpace(query))

	var text string
	switch in {
	case models.IntentGreeting:
		text = r.pick(greetingResponses)
	case models.IntentFarewell:
		text = r.pick(farewellResponses)
	case models.IntentGratitude:
		text = r.pick(gratitudeResponses)
	case models.IntentHelp:
		text = helpResponse
	case models.IntentOutOfScope:
		text = outOfScopeResponse
	case models.IntentUnclear:
		text = r.pick(clarificationResponses[clarifyCategory(lower)])
	case models.IntentChitChat:
		text = r.chitChat(ctx, query, lower, history)
	default:
		text = r.pick(clarificationResponses["default"])
	}

	return models.AnswerResult{
		Response:       text,
		Sources:        []models.SourceRef{},
		ContextFound:   false,
		Intent:         in,
		Conversational: true,
	}
}

// clarifyCategory resolves a vague query to a clarification category.
// First matching keyword group wins.
func clarifyCategory(lower string) string {
	for _, g := range clarificationGroups {
		for _, kw := range g.keywords {
			if strings.Contains(lower, kw) {
				return g.category
			}
		}
	}
	return "default"
}

func (r *Responder) chitChat(ctx context.Context, query, lower string, history []models.ChatMessage) string {
	switch {
	case strings.Contains(lower, "how are you") || strings.Contains(lower, "how r u"):
		return r.pick(chitChatResponses["how_are_you"])
	case strings.Contains(lower, "your name") || strings.Contains(lower, "who are you") || strings.Contains(lower, "what are you"):
		return r.pick(chitChatResponses["name"])
	case strings.Contains(lower, "bot") || strings.Contains(lower, "robot") || strings.Contains(lower, "ai"):
		return r.pick(chitChatResponses["bot"])
	case affirmations[lower] && len(history) > 0:
		return r.contextReply(ctx, query, history)
	default:
		return r.pick(chitChatResponses["default"])
	}
}

// contextReply answers a bare affirmation against the recent conversation.
// Any LLM failure falls back to the generic template rather than propagating.
func (r *Responder) contextReply(ctx context.Context, query string, history []models.ChatMessage) string {
	if r.llm == nil {
		return r.pick(chitChatResponses["default"])
	}

	var b strings.Builder
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}

	out, err := r.llm.Complete(ctx, contracts.CompletionRequest{
		Messages: []models.ChatMessage{
			{Role: "user", Content: fmt.Sprintf(contextPrompt, query, b.String())},
		},
		MaxTokens:   100,
		Temperature: 0.7,
	})
	if err != nil {
		r.logger.Warn().Err(err).Msg("context-aware reply failed, using template")
		return r.pick(chitChatResponses["default"])
	}
	return strings.TrimSpace(out)
}

func (r *Responder) pick(candidates []string) string {
	if len(candidates) == 1 {
		return candidates[0]
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return candidates[r.rng.Intn(len(candidates))]
}
