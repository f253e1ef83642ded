// Package tutor produces canned tutoring replies. No model is called: the reply is a pure
// function of the student's message and weak topics.
package tutor

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// Model is reported to clients in place of a real model name.
const Model = "mock-ai-model"

var (
	topicReplies = []string{
		"Let's work on %[1]s together. Start by writing down the key definitions of %[1]s, then try two short practice questions before checking the worked examples.",
		"%[1]s is one of the topics your recent quizzes flagged. Break it into smaller steps and explain each one in your own words; where you get stuck is what we should revise next.",
		"A good way to strengthen %[1]s is spaced practice: do a few problems today, a few tomorrow and a few more at the end of the week. Keep a list of the mistakes you make.",
	}
	generalReplies = []string{
		"Good question! Try to restate it in your own words, identify what is given and what is asked, and then pick the method that links the two.",
		"Let's approach this step by step. Write down what you already know about it and we can fill in the gaps together.",
		"Keep practising regularly and review your last quiz: the questions you got wrong are the best place to start.",
	}
)

// Respond returns the mock tutor reply for a message. Same inputs, same output.
func Respond(message string, weakTopics []string) string {
	msg := normalize(message)
	topics := cleanTopics(weakTopics)
	h := hash(msg, topics)

	if len(topics) == 0 {
		reply := generalReplies[h%uint32(len(generalReplies))]
		if msg == "" {
			return "Hi! Ask me anything about your lessons. " + reply
		}
		return fmt.Sprintf("You asked: %q. %s", strings.TrimSpace(message), reply)
	}

	topic, mentioned := mentionedTopic(msg, topics)
	if !mentioned {
		topic = topics[h%uint32(len(topics))]
	}
	reply := fmt.Sprintf(topicReplies[h%uint32(len(topicReplies))], topic)

	switch {
	case msg == "":
		return fmt.Sprintf("Hi! Based on your results, you could focus on: %s. %s", strings.Join(topics, ", "), reply)
	case mentioned:
		return fmt.Sprintf("You asked about %s. %s", topic, reply)
	default:
		return fmt.Sprintf("You asked: %q. %s", strings.TrimSpace(message), reply)
	}
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func cleanTopics(topics []string) []string {
	cleaned := make([]string, 0, len(topics))
	for _, t := range topics {
		if t = strings.TrimSpace(t); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	return cleaned
}

// mentionedTopic returns the first weak topic that appears in the message.
func mentionedTopic(msg string, topics []string) (string, bool) {
	for _, t := range topics {
		if strings.Contains(msg, normalize(t)) {
			return t, true
		}
	}
	return "", false
}

func hash(msg string, topics []string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(msg))
	for _, t := range topics {
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(t))
	}
	return h.Sum32()
}
