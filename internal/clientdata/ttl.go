package clientdata

import "time"

// TTLExchangeRate is how long a fetched currency rate is served without
// asking the upstream API again.
const TTLExchangeRate = time.Hour
