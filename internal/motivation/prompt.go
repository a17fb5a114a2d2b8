package motivation

const batchPrompt = `Generate 10 daily motivations for a college student. Every item MUST contain BOTH a Bible verse AND a quote.

AUDIENCE: a college freshman building discipline and fighting procrastination.

CONTENT MIX:
- 40% discipline quotes (David Goggins, Jocko Willink, Jim Rohn)
- 25% Bible verses on strength and perseverance (Proverbs, Philippians, Joshua, Isaiah)
- 20% entrepreneurship (Steve Jobs, Ray Dalio, Kobe Bryant)
- 15% resilience and habits (Marcus Aurelius, James Clear)

RULES:
- every item has a "verse" object and a "quote" object
- vary the Bible books (Proverbs, Philippians, Joshua, Isaiah, Romans, Psalms, Matthew)
- no quote author more than twice
- authentic Bible verses only, with book chapter:verse references
- full author names

Respond with a JSON array only. No markdown, no commentary:
[
  {
    "verse": {"text": "I can do all things through Christ who strengthens me.", "reference": "Philippians 4:13"},
    "quote": {"text": "Discipline equals freedom.", "author": "Jocko Willink"}
  },
  {
    "verse": {"text": "Trust in the Lord with all your heart.", "reference": "Proverbs 3:5"},
    "quote": {"text": "The only way to do great work is to love what you do.", "author": "Steve Jobs"}
  }
]
(8 more items in the same shape)`
