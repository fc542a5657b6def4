package content

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"outreach_engine/internal/campaign"
)

const techHashtags = "#AI #Tech #Innovation #Future #MachineLearning"

var industryTemplates = map[string][]string{
	"tech": {
		"Just had a fascinating conversation about {topic}. The way it's reshaping {aspect} is incredible. What's your experience with this technology? {hashtags}",
		"Been diving deep into {topic} lately. The potential applications in {aspect} are mind-blowing. How are you seeing this play out in your field? {hashtags}",
		"Hot take: {topic} isn't just a trend - it's fundamentally changing how we approach {aspect}. What do you think? {hashtags}",
		"Spent the weekend exploring {topic} and I'm convinced it's going to revolutionize {aspect}. Share your thoughts! {hashtags}",
	},
	"business": {
		"Leadership isn't about having all the answers, it's about asking the right questions about {topic}. #Leadership #Business",
		"In today's market, {topic} is becoming increasingly important. How is your organization adapting? #BusinessStrategy",
		"The key to success in {industry} is understanding {topic}. What's your experience? #BusinessGrowth",
	},
	"marketing": {
		"Marketing is evolving rapidly with {topic}. What strategies are you finding most effective? #Marketing #DigitalMarketing",
		"The power of {topic} in modern marketing cannot be overstated. Share your success stories! #MarketingStrategy",
		"How are you leveraging {topic} to connect with your audience? #ContentMarketing #Engagement",
	},
}

var industryTopics = map[string][]string{
	"tech":      {"AI automation", "machine learning", "generative AI", "cloud architecture", "data science"},
	"business":  {"leadership", "business strategy", "remote work", "team building", "digital transformation"},
	"marketing": {"generative AI", "user experience", "data science", "automation", "community building"},
}

var aspects = []string{"business operations", "customer experience", "product development", "decision making"}

// Template generates posts from fixed industry templates. It never fails.
type Template struct {
	pick func(n int) int
}

func NewTemplate() *Template {
	return &Template{pick: rand.IntN}
}

func (t *Template) Generate(_ context.Context, industry, topic string) (string, error) {
	industry = strings.ToLower(strings.TrimSpace(industry))
	if industry == "" {
		industry = "tech"
	}
	if topic = strings.TrimSpace(topic); topic != "" {
		return TopicPost(industry, topic), nil
	}

	key := industry
	if _, ok := industryTemplates[key]; !ok {
		key = "tech"
	}
	templates := industryTemplates[key]
	topics := industryTopics[key]
	r := strings.NewReplacer(
		"{topic}", topics[t.pick(len(topics))],
		"{aspect}", aspects[t.pick(len(aspects))],
		"{industry}", industry,
		"{hashtags}", techHashtags,
	)
	return r.Replace(templates[t.pick(len(templates))]), nil
}

func (t *Template) Reply(context.Context, string) (string, error) {
	return campaign.DefaultReply, nil
}

// TopicPost is the fixed post used for an explicit topic without a model.
func TopicPost(industry, topic string) string {
	return fmt.Sprintf(
		"Exploring the fascinating world of %s in %s. The potential applications are incredible! "+
			"What's your experience with %s? How do you see it shaping the future of %s? #Tech #Innovation #%s",
		topic, industry, topic, industry, strings.ReplaceAll(topic, " ", ""),
	)
}

// TimeContext phrases now as "this <weekday> morning|afternoon|evening".
func TimeContext(now time.Time) string {
	part := "evening"
	switch h := now.Hour(); {
	case h < 12:
		part = "morning"
	case h < 17:
		part = "afternoon"
	}
	return fmt.Sprintf("this %s %s", now.Weekday(), part)
}
