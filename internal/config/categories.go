package config

import "outreach_engine/internal/model"

// DefaultCategories is the category/keyword plan used when the yaml file does not declare one.
// Order matters: the allocator visits categories and keywords exactly in this order.
func DefaultCategories() []model.CategorySpec {
	return []model.CategorySpec{
		{Name: "startup", Keywords: []string{"startup founder", "entrepreneur", "startup CEO", "startup CTO"}},
		{Name: "enterprise", Keywords: []string{"enterprise architect", "VP engineering", "director technology", "chief technology officer"}},
		{Name: "ai_ml", Keywords: []string{"machine learning engineer", "AI researcher", "data scientist", "ML engineer"}},
		{Name: "gen_ai", Keywords: []string{"generative AI", "ChatGPT", "LLM engineer", "AI product manager"}},
		{Name: "anthropic_ai", Keywords: []string{"Anthropic", "Claude AI", "AI safety researcher", "responsible AI"}},
		{Name: "tech_general", Keywords: []string{"software engineer", "full stack developer", "DevOps engineer", "cloud architect"}},
		{Name: "product", Keywords: []string{"product manager", "product owner", "UX designer", "product designer"}},
		{Name: "leadership", Keywords: []string{"tech lead", "engineering manager", "CTO", "VP product"}},
		{Name: "venture", Keywords: []string{"venture capital", "angel investor", "startup advisor", "VC partner"}},
		{Name: "innovation", Keywords: []string{"innovation manager", "digital transformation", "technology consultant"}},
	}
}
