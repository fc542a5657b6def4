package content

import (
	"fmt"
	"math/rand/v2"
	"time"
)

var (
	contentTypes = []string{
		"industry_insight", "personal_experience", "trend_analysis",
		"question_post", "story_telling", "tip_sharing", "prediction",
	}
	topicsPool = []string{
		"artificial intelligence", "machine learning", "generative AI", "automation",
		"digital transformation", "cloud computing", "cybersecurity", "blockchain",
		"startup ecosystem", "venture capital", "product management", "leadership",
		"remote work", "team building", "innovation", "data science",
		"software engineering", "DevOps", "user experience", "business strategy",
	}
	postStyles = []string{
		"thought-provoking question", "personal story with lesson", "industry prediction",
		"contrarian viewpoint", "tips and advice", "behind-the-scenes insight",
		"collaboration call", "celebration post", "learning experience",
	}
)

const (
	postSystemPrompt  = "You are a professional content creator who writes authentic, engaging LinkedIn posts that spark genuine conversations."
	topicSystemPrompt = "You write authentic, engaging LinkedIn posts that spark real conversations."
	replySystemPrompt = "You reply to LinkedIn direct messages on behalf of a busy professional."
)

type prompt struct {
	system      string
	user        string
	temperature float64
}

func postPrompt(industry, topic string, now time.Time, temperature float64) prompt {
	if topic != "" {
		return prompt{
			system: topicSystemPrompt,
			user: fmt.Sprintf(`Create a unique, engaging LinkedIn post about %s in the %s industry.
The post should be:
- Authentic and personal (not corporate-speak)
- Include a compelling hook or insight
- Ask an engaging question
- Include 3-4 relevant hashtags
- Be 120-180 words
- Use only standard characters
- Avoid phrases like "I'm excited to share" or generic "thoughts?"

Make it conversational and thought-provoking.`, topic, industry),
			temperature: 0.7,
		}
	}
	return prompt{
		system: postSystemPrompt,
		user: fmt.Sprintf(`Create a unique, engaging LinkedIn post with these parameters:
- Content type: %s
- Topic: %s
- Style: %s
- Time context: %s
- Industry focus: %s

Requirements:
- Make it authentic and personal
- Include 3-5 relevant hashtags
- Ask an engaging question or call-to-action
- Be 120-180 words
- Use only standard characters (no special Unicode)
- Make it unique and different from typical corporate posts
- Add some personality and authenticity

Avoid generic phrases like "I'm excited to share" or "thoughts?"`,
			contentTypes[rand.IntN(len(contentTypes))],
			topicsPool[rand.IntN(len(topicsPool))],
			postStyles[rand.IntN(len(postStyles))],
			TimeContext(now), industry),
		temperature: temperature,
	}
}

func replyPrompt(message string) prompt {
	return prompt{
		system: replySystemPrompt,
		user: fmt.Sprintf(`You are replying on LinkedIn.
Message: %q
Rules:
- Reply in under 40 words
- Be professional, natural, friendly
- No emojis, no switching platforms
- If greeting, greet back and ask how to help`, message),
		temperature: 0.6,
	}
}
