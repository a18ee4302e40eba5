package summary

const SystemPrompt = `You are an assistant that writes structured meeting recaps from raw transcripts.
Write in Markdown. Use only information present in the transcript; do not invent names, dates or commitments.
If a section has nothing to report, write "None noted."`

const userTemplate = `Summarize the meeting transcript below using exactly these sections:

## Overview
A short paragraph describing the purpose and outcome of the meeting.

## Key Topics
Bullet list of the main subjects discussed.

## Key Decisions
Bullet list of decisions that were made.

## Action Items
Bullet list in the form "- [owner] task (due: date)". Use "unassigned" or "no date" when unknown.

## Next Steps
What happens after this meeting.

## Attendees
Names or speaker labels mentioned in the transcript.

Transcript:
%s`
