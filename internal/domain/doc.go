// Package domain turns a zone busyness request into a model-ready feature
// vector and a presentable score.
//
// # Pipeline
//
//	request -> CategorizeWeather -> interest lookup -> BuildFeatures -> Align -> Invoker.Invoke
//
// Every stage except the interest lookup and the model call is a pure
// function of its inputs and the read-only lookup tables.
//
// # Weather categories
//
// Provider weather codes (OpenWeather condition ids) collapse into the
// closed set the models were trained on:
//
//	200-299  Heavy Rain        (thunderstorm)
//	300-399  Rain              (drizzle)
//	500-599  Rain              except 502, 503, 504 -> Heavy Rain
//	600-699  Snow/Sleet        except 602, 622      -> Heavy Snow/Sleet
//	700-799  Fog/Low-Vis
//	800-804  Cloudy/Overcast   (800 clear sky is grouped with cloud cover)
//	other    Unknown
//
// The carve-out codes are a calibration contract, see [CategorizeWeather].
//
// # Defaulting precedence
//
// A feature value comes from the first tier that has it:
//
//	1. request fields (including time-derived fields and flow_features.*)
//	2. the zone's ZoneDefaults record
//	3. GlobalDefaults
//
// Later tiers only fill gaps. An unknown zone is not an error; it simply
// contributes nothing at tier 2.
//
// # Indicator columns
//
// Categorical fields expand to "<field>_<label>" columns. Numeric labels are
// rendered in shortest form without a trailing ".0", so zone 33 becomes
// "zone_id_33" and hour 18 becomes "hour_18". A label the schema does not
// know produces a column that is dropped during alignment, which is the same
// as leaving the field out.
//
// # Output transforms
//
// Models are trained on log(y) or log1p(y). [Transform.Invert] applies exp or
// expm1 accordingly before the per-zone bias is added and the score is
// rounded to two decimals.
package domain
