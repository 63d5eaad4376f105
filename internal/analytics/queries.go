package analytics

const (
	// queryHourlyUsage totals listening time per hour of day, in hours,
	// busiest hour first. Duration comes from the song dimension, so
	// only songplays that matched a catalog entry contribute.
	queryHourlyUsage = `
		SELECT t.hour AS time_of_day, SUM(s.duration)/3600 AS hours_played
		FROM songplays sp
		JOIN time t ON sp.start_time = t.start_time
		JOIN songs s ON s.song_id = sp.song_id
		GROUP BY time_of_day
		ORDER BY hours_played DESC
	`

	// queryTopSongs counts plays per (title, artist), top ten.
	queryTopSongs = `
		SELECT s.title AS song_title, a.name AS artist_name, COUNT(sp.songplay_id) AS frequency
		FROM songplays sp
		JOIN songs s ON s.song_id = sp.song_id
		JOIN artists a ON a.artist_id = sp.artist_id
		GROUP BY song_title, artist_name
		ORDER BY frequency DESC
		LIMIT 10
	`
)
