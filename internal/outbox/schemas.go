package outbox

const checkInRecordedSchema = `{
  "type": "object",
  "title": "CheckInRecorded",
  "properties": {
    "checkin_id": {"type": "string"},
    "challenge_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "day_number": {"type": "integer"},
    "checkin_date": {"type": "string", "format": "date-time"},
    "has_note": {"type": "boolean"},
    "has_photo": {"type": "boolean"},
    "source": {"type": "string"},
    "version": {"type": "string"}
  },
  "required": ["checkin_id", "challenge_id", "tenant_id", "user_id", "day_number", "checkin_date", "source", "version"],
  "additionalProperties": false
}`

const milestoneReachedSchema = `{
  "type": "object",
  "title": "MilestoneReached",
  "properties": {
    "challenge_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "day": {"type": "integer"},
    "tag": {"type": "string"},
    "message": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["challenge_id", "tenant_id", "user_id", "day", "tag", "occurred_at"],
  "additionalProperties": false
}`

const challengeCreatedSchema = `{
  "type": "object",
  "title": "ChallengeCreated",
  "properties": {
    "challenge_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "title": {"type": "string"},
    "start_date": {"type": "string", "format": "date-time"},
    "duration_days": {"type": "integer"},
    "created_at": {"type": "string", "format": "date-time"}
  },
  "required": ["challenge_id", "tenant_id", "user_id", "title", "start_date", "duration_days", "created_at"],
  "additionalProperties": false
}`

const challengeAbandonedSchema = `{
  "type": "object",
  "title": "ChallengeAbandoned",
  "properties": {
    "challenge_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "abandoned_at": {"type": "string", "format": "date-time"}
  },
  "required": ["challenge_id", "tenant_id", "user_id", "abandoned_at"],
  "additionalProperties": false
}`

const challengeCompletedSchema = `{
  "type": "object",
  "title": "ChallengeCompleted",
  "properties": {
    "challenge_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "duration_days": {"type": "integer"},
    "completed_at": {"type": "string", "format": "date-time"}
  },
  "required": ["challenge_id", "tenant_id", "user_id", "duration_days", "completed_at"],
  "additionalProperties": false
}`
