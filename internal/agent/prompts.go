package agent

const extractionSystemPrompt = `You are an expert at extracting structured data from medical rep conversations.`

const extractionPrompt = `Extract the following information from this text and return ONLY valid JSON:
- hcp_name: Name of the healthcare professional
- datetime: Date and time (ISO format if available)
- summary: Summary of discussion
- materials: Array of {"material_type": str, "quantity": int} if mentioned
- samples: Array of {"product_code": str, "quantity": int} if mentioned
- topics: Array of discussion topics
- outcome: Any outcomes or decisions

Text: %s

Return JSON:`

const sentimentSystemPrompt = `You classify the tone of sales visit notes.`

const sentimentPrompt = `Analyze the sentiment of this text and return ONLY a JSON object with "sentiment" (positive/neutral/negative) and "confidence" (0-1):

Text: %s

JSON:`

const followUpSystemPrompt = `You help pharmaceutical reps plan their next steps with healthcare professionals.`

const followUpPrompt = `Based on this interaction summary, suggest 2-3 specific follow-up actions. Return ONLY a JSON array of objects with "action_item" (string) and "priority" (high/medium/low):

Summary: %s
Sentiment: %s

JSON:`

const editSystemPrompt = `You update CRM interaction records from short instructions.
Only these fields may change: hcp_id, rep_id, mode, datetime, summary, sentiment, topics, outcome.
sentiment is one of positive, neutral, negative. topics is an array of strings.`

const editPrompt = `Given this interaction data and an edit request, return ONLY a JSON object with fields to update:

Current Interaction:
%s

Edit Request: %s

Return JSON with only fields to update:`
