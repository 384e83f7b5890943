package rag

import "github.com/tmc/langchaingo/prompts"

// NotFoundAnswer is what the model is asked to say when the context does not
// cover the question. Nothing enforces it.
const NotFoundAnswer = "I could not find relevant information in the provided documents."

const answerTemplate = `
Use the following document chunks to answer the question as accurately as possible.

If the answer is not in the documents, reply with:
"` + NotFoundAnswer + `"

Document Chunks:
{{.context}}

Question: {{.question}}
Answer:
`

const condenseTemplate = `Given the following conversation and a follow up question, rephrase the follow up question to be a standalone question.

Chat History:
{{.chat_history}}
Follow Up Input: {{.question}}
Standalone question:`

func answerPrompt() prompts.PromptTemplate {
	return prompts.NewPromptTemplate(answerTemplate, []string{"context", "question"})
}

func condensePrompt() prompts.PromptTemplate {
	return prompts.NewPromptTemplate(condenseTemplate, []string{"chat_history", "question"})
}
