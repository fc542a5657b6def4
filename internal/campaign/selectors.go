package campaign

type Syntax string

const (
	SyntaxCSS   Syntax = "css"
	SyntaxXPath Syntax = "xpath"
)

// Match describes what a strategy keys on. It only documents intent; lookups are driven by Syntax.
type Match string

const (
	MatchText      Match = "text"
	MatchAttribute Match = "attribute"
	MatchClass     Match = "class"
	MatchAncestor  Match = "ancestor"
)

type Strategy struct {
	Syntax Syntax
	Match  Match
	Expr   string
}

// Target is a semantic page control with its lookup strategies in priority order.
type Target struct {
	Name       string
	Strategies []Strategy
}

func css(match Match, expr string) Strategy {
	return Strategy{Syntax: SyntaxCSS, Match: match, Expr: expr}
}

func xpath(match Match, expr string) Strategy {
	return Strategy{Syntax: SyntaxXPath, Match: match, Expr: expr}
}

var (
	ConnectButtons = Target{Name: "connect button", Strategies: []Strategy{
		xpath(MatchText, "//button[.//span[text()='Connect']]"),
		xpath(MatchAttribute, "//button[contains(@aria-label, 'Connect')]"),
		xpath(MatchAttribute, "//button[contains(@data-control-name, 'connect')]"),
		xpath(MatchAttribute, "//button[starts-with(@aria-label,'Invite')]"),
		xpath(MatchClass, "//button[contains(@class,'artdeco-button')][contains(.,'Connect')]"),
	}}

	FollowButtons = Target{Name: "follow button", Strategies: []Strategy{
		xpath(MatchText, "//button[.//span[text()='Follow']]"),
		xpath(MatchAttribute, "//button[contains(@aria-label, 'Follow')]"),
		xpath(MatchAttribute, "//button[contains(@data-control-name, 'follow')]"),
	}}

	ResultCards = Target{Name: "result card", Strategies: []Strategy{
		css(MatchClass, "li.reusable-search__result-container"),
		css(MatchClass, "div.entity-result"),
	}}

	CardButtons = Target{Name: "card button", Strategies: []Strategy{
		xpath(MatchAncestor, ".//button"),
	}}

	CardAncestor = Target{Name: "result card ancestor", Strategies: []Strategy{
		xpath(MatchAncestor, "./ancestor::div[contains(@class, 'entity-result') or contains(@class, 'reusable-search__result')][1]"),
		xpath(MatchAncestor, "./ancestor::li[contains(@class, 'reusable-search__result-container')][1]"),
	}}

	SubjectName = Target{Name: "subject name", Strategies: []Strategy{
		xpath(MatchAncestor, ".//span[contains(@class, 'entity-result__title')]//span[@aria-hidden='true']"),
		xpath(MatchAncestor, ".//span[contains(@class, 'entity-result__title-text')]//a"),
	}}

	SubjectHeadline = Target{Name: "subject headline", Strategies: []Strategy{
		xpath(MatchAncestor, ".//div[contains(@class, 'entity-result__primary-subtitle')]"),
	}}

	SendWithoutNote = Target{Name: "send without a note", Strategies: []Strategy{
		css(MatchAttribute, "button[aria-label='Send without a note']"),
		xpath(MatchText, "//button[contains(@aria-label,'Send without a note') or .//span[text()='Send without a note']]"),
	}}

	SendInvitation = Target{Name: "send invitation", Strategies: []Strategy{
		css(MatchAttribute, "button[data-test-dialog-primary-btn]"),
		css(MatchAttribute, "button[aria-label='Send invitation']"),
		xpath(MatchText, "//button[.//span[text()='Send']]"),
	}}

	// PendingStatus matches a card whose subject already has an invitation or a connection.
	PendingStatus = Target{Name: "pending status", Strategies: []Strategy{
		xpath(MatchText, ".//*[contains(text(), 'Pending') or contains(text(), 'Invitation sent')]"),
		xpath(MatchText, ".//*[normalize-space(text())='Connected' or contains(@aria-label, 'Connected')]"),
	}}

	DismissOverlay = Target{Name: "overlay dismiss", Strategies: []Strategy{
		xpath(MatchAttribute, "//button[@aria-label='Dismiss']"),
		xpath(MatchAttribute, "//button[@aria-label='Close']"),
		xpath(MatchClass, "//button[contains(@class,'artdeco-modal__dismiss')]"),
		xpath(MatchClass, "//button[contains(@class,'consent')]"),
	}}

	NextPage = Target{Name: "next page", Strategies: []Strategy{
		xpath(MatchAttribute, "//button[@aria-label='Next' and not(@disabled)]"),
		css(MatchClass, "button.artdeco-pagination__button--next"),
	}}

	SearchResultsReady = Target{Name: "search results", Strategies: []Strategy{
		css(MatchClass, "ul.reusable-search__entity-result-list"),
		css(MatchClass, "div.search-results-container"),
	}}

	StartPost = Target{Name: "start a post", Strategies: []Strategy{
		xpath(MatchText, "//button[contains(@class, 'artdeco-button') and contains(., 'Start a post')]"),
		xpath(MatchAncestor, "//span[text()='Start a post']/parent::button"),
		xpath(MatchText, "//button[contains(text(), 'Start a post')]"),
		xpath(MatchClass, "//*[contains(@class, 'share-box-feed-entry__trigger')]"),
		xpath(MatchClass, "//div[contains(@class, 'share-box-feed-entry__closed-share-box')]"),
	}}

	PostEditor = Target{Name: "post editor", Strategies: []Strategy{
		xpath(MatchAttribute, "//div[@data-placeholder='What do you want to talk about?']"),
		xpath(MatchClass, "//div[contains(@class, 'ql-editor')]"),
		xpath(MatchAttribute, "//div[@role='textbox']"),
		xpath(MatchAttribute, "//div[@contenteditable='true']"),
	}}

	PostButton = Target{Name: "post button", Strategies: []Strategy{
		xpath(MatchClass, "//button[contains(@class, 'share-actions-primary-button') and .//span[text()='Post']]"),
		xpath(MatchText, "//button[.//span[text()='Post']]"),
		xpath(MatchAttribute, "//button[contains(@data-control-name, 'share.post')]"),
		xpath(MatchText, "//button[text()='Post']"),
	}}

	LoginEmail = Target{Name: "login e-mail", Strategies: []Strategy{
		css(MatchAttribute, "#username"),
		css(MatchAttribute, "input[name='session_key']"),
	}}

	LoginPassword = Target{Name: "login password", Strategies: []Strategy{
		css(MatchAttribute, "#password"),
		css(MatchAttribute, "input[name='session_password']"),
	}}

	LoginSubmit = Target{Name: "login submit", Strategies: []Strategy{
		xpath(MatchAttribute, "//button[@type='submit']"),
	}}

	Conversations = Target{Name: "conversation", Strategies: []Strategy{
		css(MatchClass, "li.msg-conversation-listitem"),
		css(MatchClass, "li.msg-conversations-container__convo-item"),
	}}

	ConversationMessages = Target{Name: "conversation message", Strategies: []Strategy{
		css(MatchClass, "div.msg-s-event-listitem"),
		css(MatchClass, "div.msg-s-message-list__event"),
		css(MatchClass, "li.msg-s-message-list__event"),
	}}

	MessageInput = Target{Name: "message input", Strategies: []Strategy{
		css(MatchClass, "div.msg-form__contenteditable"),
		xpath(MatchAttribute, "//div[@role='textbox' and @contenteditable='true']"),
	}}

	SendMessage = Target{Name: "send message", Strategies: []Strategy{
		css(MatchClass, "button.msg-form__send-button"),
		xpath(MatchText, "//button[@type='submit' and .//text()='Send']"),
	}}
)
