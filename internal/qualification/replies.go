// internal/qualification/replies.go
package qualification

import "fmt"

const (
	replyAskEmail          = "Hi there! Could you please share your email address so we can stay in touch?"
	replyEmailAskCompany   = "Thanks for sharing your email %s! What company are you with?"
	replyEmailAndCompany   = "Thanks for sharing your email and that you're with %s! What's your budget range for this project?"
	replyAskCompanyShort   = "Thanks! What company are you with?"
	replyEmailNotCaught    = "I didn't catch your email. Could you please share it so we can follow up?"
	replyCompanyAskBudget  = "Thanks for letting me know you're with %s! What's your budget range for this project?"
	replyAskCompanyAgain   = "Could you please share the name of your company or organization?"
	replyAskBudget         = "What's your approximate budget for this project?"
	replyNoBudgetTeamSize  = "Thanks for letting me know. How many people are on your development team currently?"
	replyBudgetTeamSize    = "Thanks for sharing your budget! How many people are on your development team currently?"
	replyClarifyBudget     = "Thanks! Just to clarify, what's your approximate budget for this project?"
	replyAskTimeline       = "What's your timeline for this project?"
	replyClosingQuestion   = "Is there anything else you'd like us to know about your project or company?"
	replyCalendlyOffer     = "Great! Based on what you've shared, our team might be a perfect fit. I'd love to book a quick demo with a solutions architect.\n\nYou can book here: %s\n\nAnything you'd like us to prepare for the demo?"
	replyAfterCalendly     = "Is there anything else you'd like to know about our services before the meeting?"
	replyWeakLeadHolding   = "Thanks again for your interest, we will get back to you when we have more information. We look forward to working with you in the future!"
	replyNotRelevant       = "Thanks for the info. We typically work with businesses with established budgets, but I'd be happy to point you to learning resources if you'd like!"
	replyGeneric           = "Thanks for reaching out! How can I help with your project today?"
	ReplyProcessingFailure = "Sorry, something went wrong while processing your message. Please try again in a moment."
)

func calendlyOffer(link string) string {
	return fmt.Sprintf(replyCalendlyOffer, link)
}
